package policy

import v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"

// allowWorldEgress is the first of the two temporary safety-net
// policies: it keeps every pod's egress to the outside world open so
// that APPLY mode never cuts off traffic the role/infra policies
// failed to anticipate.
func allowWorldEgress(ns string) *v2.NetworkPolicy {
	p := newPolicy(ns, "infra-temp-allow-world-egress", TypeSafety)
	p.Spec = v2.Spec{
		EndpointSelector: v2.Selector{},
		Egress:           []v2.EgressRule{{ToEntities: []string{"world"}}},
	}
	return p
}

// allowHostRemoteIngressEgress is the second safety-net policy: it
// keeps host and remote-node traffic open in both directions, which
// covers kubelet probes, CNI control traffic, and node-local
// connections that role policies never model.
func allowHostRemoteIngressEgress(ns string) *v2.NetworkPolicy {
	p := newPolicy(ns, "infra-temp-allow-host-remote", TypeSafety)
	p.Spec = v2.Spec{
		EndpointSelector: v2.Selector{},
		Egress: []v2.EgressRule{
			{ToEntities: []string{"host"}},
			{ToEntities: []string{"remote-node"}},
		},
		Ingress: []v2.IngressRule{
			{FromEntities: []string{"host"}},
			{FromEntities: []string{"remote-node"}},
		},
	}
	return p
}

// GenerateSafety returns the two standing safety-net policies.
func GenerateSafety(ns string) []*v2.NetworkPolicy {
	return []*v2.NetworkPolicy{
		allowWorldEgress(ns),
		allowHostRemoteIngressEgress(ns),
	}
}
