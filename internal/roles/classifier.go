// Package roles maps a pod's labels and name to a role identifier
// (spec.md §4.2). Classification is a pure function of its inputs, and
// must always yield the same role for the same pod within one
// controller version (spec.md §4.2 invariant).
package roles

import "strings"

// Unknown is returned when neither the label nor the name heuristics
// recognize a pod.
const Unknown = "unknown"

// LabelPrefix is the well-known label namespace carrying explicit role
// assignments (spec.md §4.2 priority 1).
const LabelPrefix = "roles.athena.t9s.io/"

const labelActiveValue = "active"

// FromLabels returns the role named by an "active"
// roles.athena.t9s.io/<role> label, or "" if none match. When several
// labels match, the alphabetically first role is returned, so the same
// label set always yields the same role.
func FromLabels(labels map[string]string) string {
	best := ""
	for k, v := range labels {
		if v != labelActiveValue {
			continue
		}
		if role, ok := strings.CutPrefix(k, LabelPrefix); ok && role != "" {
			if best == "" || role < best {
				best = role
			}
		}
	}
	return best
}

// nameRule is one entry of the ordered name-heuristic table (spec.md
// §4.2 priority 2). match is evaluated against the lower-cased pod name.
type nameRule struct {
	role  string
	match func(name string) bool
}

func contains(substr string) func(string) bool {
	return func(name string) bool { return strings.Contains(name, substr) }
}

func hasPrefix(prefix string) func(string) bool {
	return func(name string) bool { return strings.HasPrefix(name, prefix) }
}

func anyOf(fns ...func(string) bool) func(string) bool {
	return func(name string) bool {
		for _, f := range fns {
			if f(name) {
				return true
			}
		}
		return false
	}
}

// nameRules is the deterministic, ordered name-heuristic table from
// spec.md §4.2. Order is authoritative (spec.md §9 Open Questions) and
// must not be reordered or deduplicated against an unseen second copy
// of the original classifier, since none survived retrieval.
var nameRules = []nameRule{
	{"operator", contains("operator")},
	{"db", contains("mysql")},
	{"nr-rfsim", contains("rfsim")},
	{"ric", anyOf(contains("flexric"), hasPrefix("ric"), contains(".ric"))},
	{"xapp", contains("xapp")},
	{"gnb", anyOf(hasPrefix("gnb."), contains("oai-gnb"))},
	{"upf", anyOf(hasPrefix("upf."), contains("upf"))},
	{"smf", hasPrefix("smf.")},
	{"amf", hasPrefix("amf.")},
	{"db", hasPrefix("db.")},
	{"monitoring", contains("monitor")},
}

// FromName applies the ordered name-heuristic table to a lower-cased
// pod name, returning the first matching role or Unknown.
func FromName(name string) string {
	lower := strings.ToLower(name)
	for _, r := range nameRules {
		if r.match(lower) {
			return r.role
		}
	}
	return Unknown
}

// FromPod classifies a pod by its labels first, falling back to its
// name (spec.md §4.2).
func FromPod(name string, labels map[string]string) string {
	if role := FromLabels(labels); role != "" {
		return role
	}
	return FromName(name)
}

// ParsePodIdentity splits a "<namespace>/<pod>" identity (spec.md §3)
// into its two parts. It reports ok=false for an identity that does
// not contain exactly one '/'.
func ParsePodIdentity(id string) (namespace, name string, ok bool) {
	if strings.Count(id, "/") != 1 {
		return "", "", false
	}
	i := strings.IndexByte(id, '/')
	namespace, name = id[:i], id[i+1:]
	return namespace, name, true
}
