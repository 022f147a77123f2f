package gate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wejdeneh/cntrl/internal/k8sclient"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

func portsPolicy() *v2.NetworkPolicy {
	p := v2.New("trirematics", "ports")
	p.Spec = v2.Spec{
		Egress: []v2.EgressRule{
			{ToPorts: []v2.PortRule{{Ports: []v2.PortProtocol{
				{Port: "53", Protocol: "UDP"},
				{Port: "53", Protocol: "TCP"},
				{Port: "6443", Protocol: "TCP"},
			}}}},
			{ToPorts: []v2.PortRule{{Ports: []v2.PortProtocol{{Port: "5553", Protocol: "UDP"}}}}},
		},
		Ingress: []v2.IngressRule{
			{ToPorts: []v2.PortRule{{Ports: []v2.PortProtocol{{Port: "50051", Protocol: "TCP"}}}}},
		},
	}
	return p
}

// TestValidateFailsWhenInfraSelectorMatchesNothing is spec.md scenario S1.
func TestValidateFailsWhenInfraSelectorMatchesNothing(t *testing.T) {
	pods := []k8sclient.PodView{{Labels: map[string]string{"app": "something"}}}

	infra := v2.New("trirematics", "infra-test")
	infra.Metadata.Labels = map[string]string{"trirematics.io/type": "infra"}
	infra.Spec = v2.Spec{EndpointSelector: v2.Selector{MatchLabels: map[string]string{"control-plane": "controller-manager"}}}

	res := Validate("trirematics", pods, []*v2.NetworkPolicy{infra, portsPolicy()})
	assert.False(t, res.OK)
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "matches 0 pods") {
			found = true
		}
	}
	assert.True(t, found)
}

// TestValidatePassesForMinimumHappyPath is spec.md scenario S2.
func TestValidatePassesForMinimumHappyPath(t *testing.T) {
	pods := []k8sclient.PodView{{Labels: map[string]string{
		"control-plane":                 "controller-manager",
		"operation-plane.t9s.io/level":  "base-operator",
		"roles.athena.t9s.io/amf":       "active",
	}}}

	infra := v2.New("trirematics", "infra-ok")
	infra.Metadata.Labels = map[string]string{"trirematics.io/type": "infra"}
	infra.Spec = v2.Spec{EndpointSelector: v2.Selector{MatchLabels: map[string]string{"control-plane": "controller-manager"}}}

	res := Validate("trirematics", pods, []*v2.NetworkPolicy{infra, portsPolicy()})
	assert.True(t, res.OK)
	assert.Empty(t, res.Errors)
}

func TestValidateWarnsOnMissingRoleLabels(t *testing.T) {
	pods := []k8sclient.PodView{{Labels: map[string]string{"app": "something"}}}
	res := Validate("trirematics", pods, []*v2.NetworkPolicy{portsPolicy()})
	assert.Contains(t, res.Warnings[0], "roles.athena.t9s.io")
}

func TestValidateEmptySelectorSelectsAllPods(t *testing.T) {
	pods := []k8sclient.PodView{{Labels: map[string]string{"roles.athena.t9s.io/amf": "active"}}}
	infra := v2.New("trirematics", "infra-empty-sel")
	infra.Metadata.Labels = map[string]string{"trirematics.io/type": "infra"}
	infra.Spec = v2.Spec{EndpointSelector: v2.Selector{}}

	res := Validate("trirematics", pods, []*v2.NetworkPolicy{infra, portsPolicy()})
	assert.True(t, res.OK)
}

func TestValidateFailsOnMissingCriticalPort(t *testing.T) {
	pods := []k8sclient.PodView{{Labels: map[string]string{"roles.athena.t9s.io/amf": "active"}}}
	res := Validate("trirematics", pods, nil)
	assert.False(t, res.OK)
	assert.Len(t, res.Errors, 5)
}
