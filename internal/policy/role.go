package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/mode"
	v2 "github.com/wejdeneh/cntrl/pkg/cilium/v2"
)

// RolePolicy builds one narrow allow rule connecting src role to dst
// role on a single (proto, port), named
// "role-<src>-to-<dst>-<port>-<proto-lower>" (spec.md §4.4).
func RolePolicy(ns string, edge edgestore.RoleEdge, m mode.Mode) *v2.NetworkPolicy {
	name := fmt.Sprintf("role-%s-to-%s-%d-%s", edge.SrcRole, edge.DstRole, edge.Port, strings.ToLower(string(edge.Proto)))

	p := newPolicy(ns, name, TypeRole)
	p.Metadata.Labels[LabelMode] = modeLabelValue(m)
	p.Metadata.Labels[LabelSrc] = edge.SrcRole
	p.Metadata.Labels[LabelDst] = edge.DstRole

	p.Spec = v2.Spec{
		EndpointSelector: v2.Selector{
			MatchLabels: map[string]string{RoleLabel(edge.DstRole): "active"},
		},
		Ingress: []v2.IngressRule{
			{
				FromEndpoints: []v2.Selector{
					{MatchLabels: map[string]string{RoleLabel(edge.SrcRole): "active"}},
				},
				ToPorts: []v2.PortRule{
					{Ports: []v2.PortProtocol{{Port: strconv.Itoa(edge.Port), Protocol: string(edge.Proto)}}},
				},
			},
		},
	}
	return p
}

// GenerateRolePolicies converts a set of role edges into one policy
// per edge (spec.md §4.4).
func GenerateRolePolicies(ns string, edges []edgestore.RoleEdge, m mode.Mode) []*v2.NetworkPolicy {
	out := make([]*v2.NetworkPolicy, 0, len(edges))
	for _, e := range edges {
		out = append(out, RolePolicy(ns, e, m))
	}
	return out
}
