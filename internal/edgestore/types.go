// Package edgestore persists the observed and frozen pod-edge sets
// (spec.md §3) as the two well-known JSON documents named in spec.md §6,
// providing atomic writes and read paths that tolerate a missing, empty,
// or malformed file (spec.md §8 invariant 5).
package edgestore

import (
	"encoding/json"
	"fmt"
)

// Protocol is an L4 transport protocol, always upper-cased.
type Protocol string

// The three protocols spec.md §3 recognizes.
const (
	TCP  Protocol = "TCP"
	UDP  Protocol = "UDP"
	SCTP Protocol = "SCTP"
)

// PodEdge is a directed (src, dst, port, proto) tuple between two pod
// identities of the form "<namespace>/<pod>" (spec.md §3).
type PodEdge struct {
	Src   string
	Dst   string
	Port  int
	Proto Protocol
}

// String renders the edge for log lines and error messages.
func (e PodEdge) String() string {
	return fmt.Sprintf("%s->%s:%d/%s", e.Src, e.Dst, e.Port, e.Proto)
}

// MarshalJSON encodes a PodEdge as the 4-element array the persisted
// schema uses: [src, dst, port, proto].
func (e PodEdge) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]interface{}{e.Src, e.Dst, e.Port, string(e.Proto)})
}

// UnmarshalJSON decodes a PodEdge from a 4-element array. An array with
// fewer than four elements, a non-string src/dst/proto, or a
// non-numeric port is reported as an error; elements past the fourth
// are ignored. The error fails decoding of the whole document, which
// readDocument then treats as the empty edge set (spec.md §8 invariant 5).
func (e *PodEdge) UnmarshalJSON(data []byte) error {
	var raw [4]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var src, dst, proto string
	var port int
	if err := json.Unmarshal(raw[0], &src); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &dst); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[2], &port); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[3], &proto); err != nil {
		return err
	}
	e.Src, e.Dst, e.Port, e.Proto = src, dst, port, Protocol(proto)
	return nil
}

// RoleEdge is a directed (src_role, dst_role, port, proto) tuple
// (spec.md §3). It exists iff some pod edge maps both endpoints to
// those roles and the (protocol, port) clears the port gatekeeper
// (spec.md §4.3).
type RoleEdge struct {
	SrcRole string
	DstRole string
	Port    int
	Proto   Protocol
}

// Set is a deduplicated collection of pod edges.
type Set map[PodEdge]struct{}

// RoleSet is a deduplicated collection of role edges.
type RoleSet map[RoleEdge]struct{}

// Slice returns the set's members as a slice, in no particular order.
func (s RoleSet) Slice() []RoleEdge {
	out := make([]RoleEdge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	return out
}

// NewSet builds a Set from a slice of edges.
func NewSet(edges ...PodEdge) Set {
	s := make(Set, len(edges))
	for _, e := range edges {
		s[e] = struct{}{}
	}
	return s
}

// Slice returns the set's members as a slice, in no particular order;
// callers that need determinism should sort the result.
func (s Set) Slice() []PodEdge {
	out := make([]PodEdge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	return out
}

// Union returns a new set containing every edge in s or other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for e := range s {
		out[e] = struct{}{}
	}
	for e := range other {
		out[e] = struct{}{}
	}
	return out
}

// Difference returns the edges in s that are not in other (s \ other).
func (s Set) Difference(other Set) Set {
	out := make(Set, len(s))
	for e := range s {
		if _, ok := other[e]; !ok {
			out[e] = struct{}{}
		}
	}
	return out
}

// document is the on-disk JSON schema shared by the observed and frozen
// files (spec.md §6): {edges, last_updated?, frozen_at?, source?}.
type document struct {
	Edges       []PodEdge `json:"edges"`
	LastUpdated int64     `json:"last_updated,omitempty"`
	FrozenAt    int64     `json:"frozen_at,omitempty"`
	Source      string    `json:"source,omitempty"`
}
