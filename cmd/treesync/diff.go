package main

import "unicode/utf8"

// minimalEdit returns the single replacement turning old into new: the
// span between their common prefix and common suffix. Both ends fall on
// rune boundaries.
func minimalEdit(old, new string) (offset, oldLen int, text string) {
	n := min(len(old), len(new))

	prefix := 0
	for prefix < n && old[prefix] == new[prefix] {
		prefix++
	}
	for prefix > 0 && prefix < len(old) && !utf8.RuneStart(old[prefix]) {
		prefix--
	}

	suffix := 0
	for suffix < n-prefix && old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}
	for suffix > 0 && !utf8.RuneStart(old[len(old)-suffix]) {
		suffix--
	}

	return prefix, len(old) - prefix - suffix, new[prefix : len(new)-suffix]
}
