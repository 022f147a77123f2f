// Package gate is the safety gate that guards entry into APPLY mode.
// It is a pure function over the namespace's pods and the desired
// policy set: it never talks to the cluster or mutates anything, and
// its job is to catch the common causes of a self-inflicted outage —
// a selector typo that matches no pod, a forgotten critical port —
// before the reconciler is ever invoked (spec.md §4.5).
package gate

import (
	"fmt"
	"strings"

	"github.com/wejdeneh/cntrl/internal/k8sclient"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

// RoleLabelPrefix is the well-known prefix of every role-marker label
// checked by rule 1 below.
const RoleLabelPrefix = "roles.athena.t9s.io/"

// criticalPort is one entry of the anywhere-in-desired-set checklist.
type criticalPort struct {
	proto string
	port  string
	why   string
}

var criticalPorts = []criticalPort{
	{"UDP", "5553", "operator UDP/5553 appears in pod specs and was seen dropping"},
	{"TCP", "50051", "OLM/operators-plane gRPC 50051 must be allowed"},
	{"UDP", "53", "DNS egress requires UDP/53"},
	{"TCP", "53", "DNS egress requires TCP/53"},
	{"TCP", "6443", "kube-apiserver is commonly needed"},
}

// Result is the outcome of Validate.
type Result struct {
	OK       bool
	Errors   []string
	Warnings []string
}

// Validate runs the three checks of spec.md §4.5 against a namespace's
// pods and a candidate desired policy set. It never blocks on
// warnings; OK is true iff Errors is empty.
func Validate(namespace string, pods []k8sclient.PodView, desired []*v2.NetworkPolicy) Result {
	var r Result

	if !anyRoleLabel(pods) {
		r.Warnings = append(r.Warnings, "no pod labels matching "+RoleLabelPrefix+"* were found; role-based policies may select nothing")
	}

	for _, p := range desired {
		if p.Metadata.Labels["trirematics.io/type"] != "infra" {
			continue
		}
		sel := p.Spec.EndpointSelector
		if sel.IsEmpty() {
			continue
		}
		if !anyPodMatches(sel, pods) {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"infra policy %s endpointSelector matches 0 pods (label drift? selector too strict)", p.Metadata.Name))
		}
	}

	for _, cp := range criticalPorts {
		if !anyPolicyHasPort(desired, cp.proto, cp.port) {
			r.Errors = append(r.Errors, fmt.Sprintf("no desired policy includes %s/%s (%s)", cp.proto, cp.port, cp.why))
		}
	}

	r.OK = len(r.Errors) == 0
	return r
}

func anyRoleLabel(pods []k8sclient.PodView) bool {
	for _, p := range pods {
		for k := range p.Labels {
			if strings.HasPrefix(k, RoleLabelPrefix) {
				return true
			}
		}
	}
	return false
}

func anyPodMatches(sel v2.Selector, pods []k8sclient.PodView) bool {
	for _, p := range pods {
		if selectorMatches(sel, p.Labels) {
			return true
		}
	}
	return false
}

// selectorMatches evaluates a Cilium/Kubernetes-style selector
// (matchLabels plus matchExpressions with In/NotIn/Exists/DoesNotExist)
// against a single label set. Any unknown operator is treated as
// non-match.
func selectorMatches(sel v2.Selector, labels map[string]string) bool {
	for k, v := range sel.MatchLabels {
		if labels[k] != v {
			return false
		}
	}
	for _, expr := range sel.MatchExpressions {
		if !requirementMatches(expr, labels) {
			return false
		}
	}
	return true
}

func requirementMatches(req v2.Requirement, labels map[string]string) bool {
	v, present := labels[req.Key]
	switch req.Operator {
	case "In":
		return present && contains(req.Values, v)
	case "NotIn":
		return !present || !contains(req.Values, v)
	case "Exists":
		return present
	case "DoesNotExist":
		return !present
	default:
		return false
	}
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func anyPolicyHasPort(policies []*v2.NetworkPolicy, proto, port string) bool {
	for _, p := range policies {
		if rulesHavePort(p.Spec.Ingress, p.Spec.Egress, proto, port) {
			return true
		}
	}
	return false
}

func rulesHavePort(ingress []v2.IngressRule, egress []v2.EgressRule, proto, port string) bool {
	for _, r := range ingress {
		if portRulesHave(r.ToPorts, proto, port) {
			return true
		}
	}
	for _, r := range egress {
		if portRulesHave(r.ToPorts, proto, port) {
			return true
		}
	}
	return false
}

func portRulesHave(rules []v2.PortRule, proto, port string) bool {
	for _, tp := range rules {
		for _, pp := range tp.Ports {
			if strings.EqualFold(pp.Protocol, proto) && pp.Port == port {
				return true
			}
		}
	}
	return false
}
