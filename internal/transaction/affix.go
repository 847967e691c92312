package transaction

import "unicode/utf8"

// commonAffixes returns the lengths of the longest common prefix and the
// longest common suffix of a and b that do not overlap and do not split a
// UTF-8 sequence.
func commonAffixes(a, b string) (prefix, suffix int) {
	limit := min(len(a), len(b))
	for prefix < limit && a[prefix] == b[prefix] {
		prefix++
	}
	for prefix > 0 && (!runeBoundary(a, prefix) || !runeBoundary(b, prefix)) {
		prefix--
	}

	limit -= prefix
	for suffix < limit && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	for suffix > 0 && !utf8.RuneStart(a[len(a)-suffix]) {
		suffix--
	}
	return prefix, suffix
}

// runeBoundary reports whether offset i of s starts a rune or ends s.
func runeBoundary(s string, i int) bool {
	return i >= len(s) || utf8.RuneStart(s[i])
}
