package ports

import "github.com/wejdeneh/cntrl/internal/edgestore"

// RolePair identifies a directed (src role, dst role) pair.
type RolePair struct {
	Src string
	Dst string
}

// PortProto is a bare (protocol, port) pair.
type PortProto struct {
	Proto edgestore.Protocol
	Port  int
}

// KnownPorts is the hand-curated allowlist of safe (proto, port) pairs
// per directed role pair (spec.md §4.3). Per spec.md §9's Open
// Questions, this is the union of the two KNOWN_PORTS tables the
// original implementation carried; only one copy survived retrieval,
// so it is taken whole as the full table (see DESIGN.md).
var KnownPorts = map[RolePair]map[PortProto]struct{}{
	{"gnb", "upf"}: set(PortProto{edgestore.UDP, 2152}),
	{"upf", "smf"}: set(
		PortProto{edgestore.TCP, 60001},
		PortProto{edgestore.UDP, 8805},
	),
	{"gnb", "amf"}: set(
		PortProto{edgestore.SCTP, 38412},
		PortProto{edgestore.SCTP, 57871},
		PortProto{edgestore.TCP, 60001},
	),
	{"amf", "gnb"}: set(
		PortProto{edgestore.SCTP, 38412},
		PortProto{edgestore.TCP, 60001},
	),
	{"amf", "db"}: set(
		PortProto{edgestore.TCP, 3306},
		PortProto{edgestore.TCP, 60001},
	),
	{"gnb", "ric"}: set(PortProto{edgestore.TCP, 60001}),
	{"ric", "gnb"}: set(PortProto{edgestore.TCP, 60001}),
	{"nr-rfsim", "gnb"}: set(
		PortProto{edgestore.TCP, 4043},
		PortProto{edgestore.TCP, 60001},
	),
	{"monitoring", "db"}:  set(PortProto{edgestore.TCP, 3306}),
	{"monitoring", "ric"}: set(PortProto{edgestore.TCP, 60001}),
	{"amf", "smf"}:        set(PortProto{edgestore.TCP, 80}),
	{"smf", "amf"}:        set(PortProto{edgestore.TCP, 80}),
	{"smf", "upf"}: set(
		PortProto{edgestore.UDP, 8805},
		PortProto{edgestore.TCP, 60001},
	),
}

func set(pps ...PortProto) map[PortProto]struct{} {
	out := make(map[PortProto]struct{}, len(pps))
	for _, pp := range pps {
		out[pp] = struct{}{}
	}
	return out
}

// Allows reports whether (proto, port) is in the hand-curated allowlist
// for the directed role pair (src, dst).
func Allows(src, dst string, proto edgestore.Protocol, port int) bool {
	allowed, ok := KnownPorts[RolePair{src, dst}]
	if !ok {
		return false
	}
	_, ok = allowed[PortProto{proto, port}]
	return ok
}
