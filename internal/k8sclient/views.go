// Package k8sclient is the external-collaborator boundary for cntrl:
// it lists pods/services/endpoints/namespaces through a real
// k8s.io/client-go clientset and talks to the CiliumNetworkPolicy CRD
// through k8s.io/client-go/dynamic. Kubernetes transport, auth, and
// kubeconfig discovery are consumed, not reimplemented (spec.md §1).
package k8sclient

import "github.com/wejdeneh/cntrl/internal/edgestore"

// PortProto is a bare (protocol, port) pair, as seen on a container or
// service port.
type PortProto struct {
	Proto edgestore.Protocol
	Port  int
}

// PodView is the transient projection of a pod spec.md §3 names,
// rebuilt fresh on every reconcile tick.
type PodView struct {
	Namespace      string
	Name           string
	Labels         map[string]string
	PodIP          string
	ContainerPorts map[PortProto]struct{}
}

// ServiceView is the transient projection of a Service spec.md §3 names.
type ServiceView struct {
	Namespace string
	Name      string
	Selector  map[string]string
	Ports     map[PortProto]struct{}
}

// EndpointsView is the transient projection of an Endpoints object
// spec.md §3 names: the set of pod IPs currently backing a Service.
type EndpointsView struct {
	Namespace string
	Name      string
	IPs       map[string]struct{}
}

// MatchesSelector reports whether the pod's labels satisfy a plain
// key=value selector map (Service selectors do not support
// matchExpressions; that richer form is only used by policy selectors,
// handled in internal/gate).
func (p PodView) MatchesSelector(selector map[string]string) bool {
	if len(selector) == 0 {
		return false
	}
	for k, v := range selector {
		if p.Labels[k] != v {
			return false
		}
	}
	return true
}
