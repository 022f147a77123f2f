package reconcile

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	invalidNameChars  = regexp.MustCompile(`[^a-z0-9.-]`)
	repeatedNameSeps  = regexp.MustCompile(`[-.]{2,}`)
	leadingNonAlnum   = regexp.MustCompile(`^[^a-z0-9]+`)
	trailingNonAlnum  = regexp.MustCompile(`[^a-z0-9]+$`)

	invalidLabelChars     = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	repeatedLabelSeps     = regexp.MustCompile(`[-_.]{2,}`)
	leadingNonAlnumLabel  = regexp.MustCompile(`^[^A-Za-z0-9]+`)
	trailingNonAlnumLabel = regexp.MustCompile(`[^A-Za-z0-9]+$`)
)

// sanitizeName normalizes a policy name into a valid Kubernetes object
// name: lowercase, invalid characters replaced with "-", runs of "-"
// or "." collapsed, non-alphanumeric trimmed off both ends. An empty
// result falls back to "cnp" (spec.md §4.6).
func sanitizeName(name string) string {
	n := strings.ToLower(name)
	n = invalidNameChars.ReplaceAllString(n, "-")
	n = repeatedNameSeps.ReplaceAllString(n, "-")
	n = leadingNonAlnum.ReplaceAllString(n, "")
	n = trailingNonAlnum.ReplaceAllString(n, "")
	if n == "" {
		return "cnp"
	}
	return n
}

// sanitizeLabelValue normalizes a label value into a valid Kubernetes
// label value: allowed charset is [A-Za-z0-9._-], with the same
// collapse-and-trim treatment as sanitizeName. Values over 63 characters
// are truncated to 56 characters plus a "-" and the first 6 hex digits
// of the SHA1 of the original value, then re-trimmed (spec.md §4.6).
func sanitizeLabelValue(val string) string {
	v := invalidLabelChars.ReplaceAllString(val, "-")
	v = repeatedLabelSeps.ReplaceAllString(v, "-")
	v = leadingNonAlnumLabel.ReplaceAllString(v, "")
	v = trailingNonAlnumLabel.ReplaceAllString(v, "")
	if v == "" {
		return "value"
	}
	if len(v) > 63 {
		sum := sha1.Sum([]byte(val))
		h := hex.EncodeToString(sum[:])[:6]
		v = v[:63-7] + "-" + h
		v = trailingNonAlnumLabel.ReplaceAllString(v, "")
		if v == "" {
			v = h
		}
	}
	return v
}
