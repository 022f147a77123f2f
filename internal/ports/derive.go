// Package ports derives the set of stable destination-role ports from
// cluster state (spec.md §4.3) and gates pod edges into role edges
// against that derived set plus the hand-curated known-pairs allowlist.
package ports

import (
	"sort"

	"github.com/wejdeneh/cntrl/internal/edgestore"
	"github.com/wejdeneh/cntrl/internal/k8sclient"
	"github.com/wejdeneh/cntrl/internal/roles"
)

// StableEdge is a derived ("*", dst_role, port, proto) sentinel: it
// records that port/proto is a stable, service-discoverable way to
// reach dst_role, regardless of which role is speaking to it (spec.md
// §4.3).
type StableEdge struct {
	DstRole string
	Proto   edgestore.Protocol
	Port    int
}

// DeriveStablePorts computes the stable destination-role ports for a
// namespace from its current pods, services, and endpoints (spec.md
// §4.3). Preference order per destination role:
//
//  1. Service ports for services that select the role's pods, narrowed
//     to pods actually present in a matching Endpoints object, when one
//     exists for that service.
//  2. containerPorts declared on the role's pods, when no service
//     covers them.
func DeriveStablePorts(ns string, pods []k8sclient.PodView, svcs []k8sclient.ServiceView, eps []k8sclient.EndpointsView) []StableEdge {
	rolePorts := map[string]map[k8sclient.PortProto]struct{}{}
	addPorts := func(role string, pp map[k8sclient.PortProto]struct{}) {
		if role == "" || role == roles.Unknown {
			return
		}
		dst := rolePorts[role]
		if dst == nil {
			dst = map[k8sclient.PortProto]struct{}{}
			rolePorts[role] = dst
		}
		for p := range pp {
			dst[p] = struct{}{}
		}
	}

	ipToPod := map[string]k8sclient.PodView{}
	var podsInNS []k8sclient.PodView
	for _, p := range pods {
		if p.Namespace != ns {
			continue
		}
		podsInNS = append(podsInNS, p)
		if p.PodIP != "" {
			ipToPod[p.PodIP] = p
		}
	}

	// Fallback source: containerPorts.
	for _, p := range podsInNS {
		role := roles.FromPod(p.Name, p.Labels)
		addPorts(role, p.ContainerPorts)
	}

	epsByName := map[string]k8sclient.EndpointsView{}
	for _, e := range eps {
		if e.Namespace == ns {
			epsByName[e.Name] = e
		}
	}

	// Preferred source: Service ports, for pods matching the service
	// selector.
	covered := map[string]bool{}
	for _, svc := range svcs {
		if svc.Namespace != ns || len(svc.Selector) == 0 || len(svc.Ports) == 0 {
			continue
		}

		ep, hasEndpoints := epsByName[svc.Name]
		for _, p := range podsInNS {
			if !p.MatchesSelector(svc.Selector) {
				continue
			}
			if hasEndpoints {
				if _, inEndpoints := ep.IPs[p.PodIP]; !inEndpoints {
					continue
				}
			}
			role := roles.FromPod(p.Name, p.Labels)
			addPorts(role, svc.Ports)
			covered[p.Name] = true
		}
	}

	// Fallback source: containerPorts, for pods no service covers.
	for _, p := range podsInNS {
		if covered[p.Name] {
			continue
		}
		role := roles.FromPod(p.Name, p.Labels)
		addPorts(role, p.ContainerPorts)
	}

	var out []StableEdge
	for role, pp := range rolePorts {
		for p := range pp {
			out = append(out, StableEdge{DstRole: role, Proto: p.Proto, Port: p.Port})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DstRole != out[j].DstRole {
			return out[i].DstRole < out[j].DstRole
		}
		if out[i].Proto != out[j].Proto {
			return out[i].Proto < out[j].Proto
		}
		return out[i].Port < out[j].Port
	})
	return out
}

// stableFor indexes derived stable edges by destination role for the
// admission check in Admit.
func stableFor(derived []StableEdge, dstRole string) map[PortProto]struct{} {
	out := map[PortProto]struct{}{}
	for _, e := range derived {
		if e.DstRole == dstRole {
			out[PortProto{e.Proto, e.Port}] = struct{}{}
		}
	}
	return out
}

// Admit reports whether a role edge may be promoted from a pod edge
// (spec.md §4.3's edge admission rule): the (proto, port) must be in the
// hand-curated known-pairs allowlist for (srcRole, dstRole), or in the
// derived stable-port set for dstRole.
func Admit(srcRole, dstRole string, proto edgestore.Protocol, port int, derived []StableEdge) bool {
	if Allows(srcRole, dstRole, proto, port) {
		return true
	}
	_, ok := stableFor(derived, dstRole)[PortProto{proto, port}]
	return ok
}
