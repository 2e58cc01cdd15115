package platform

import "strings"

// Slugify lowercases s and collapses every run of characters outside
// [a-z0-9] into a single hyphen. The result is truncated to maxLen
// (0 means no limit) and never starts or ends with a hyphen.
func Slugify(s string, maxLen int) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	out := b.String()
	if maxLen > 0 && len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "-")
	}
	return out
}
