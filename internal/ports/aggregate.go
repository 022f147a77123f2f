package ports

import (
	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/roles"
)

// AggregateRoleEdges promotes a set of pod-level edges into role-level
// edges (spec.md §4.3): both endpoints must resolve to a pod identity
// in the target namespace, map to a known role via the name-only
// heuristics (pod edges carry no labels, spec.md §3), and the
// (proto, port) must be admitted per Admit. The result is deduplicated.
//
// Pod identity classification here never consults the label path: a
// recorded pod edge is only ever (namespace, pod name), never labels
// (spec.md §3's Pod edge tuple). Label-aware classification
// (roles.FromPod) is used by the port deriver, which has access to
// live pod objects.
func AggregateRoleEdges(ns string, podEdges edgestore.Set, derived []StableEdge) edgestore.RoleSet {
	out := make(edgestore.RoleSet)
	for edge := range podEdges {
		srcNS, srcName, ok := roles.ParsePodIdentity(edge.Src)
		if !ok || srcNS != ns {
			continue
		}
		dstNS, dstName, ok := roles.ParsePodIdentity(edge.Dst)
		if !ok || dstNS != ns {
			continue
		}

		srcRole := roles.FromName(srcName)
		dstRole := roles.FromName(dstName)
		if srcRole == roles.Unknown || dstRole == roles.Unknown {
			continue
		}

		if !Admit(srcRole, dstRole, edge.Proto, edge.Port, derived) {
			continue
		}

		out[edgestore.RoleEdge{SrcRole: srcRole, DstRole: dstRole, Port: edge.Port, Proto: edge.Proto}] = struct{}{}
	}
	return out
}
