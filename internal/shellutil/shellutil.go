// Package shellutil quotes strings for safe embedding in POSIX shell
// command lines, such as the batch command string submitted to NGC.
package shellutil

import "strings"

const safeChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./:=+@,%"

// Quote returns value wrapped in single quotes when it contains characters
// the shell would otherwise interpret. Plain values pass through untouched.
func Quote(value string) string {
	if value == "" {
		return "''"
	}
	safe := true
	for _, r := range value {
		if !strings.ContainsRune(safeChars, r) {
			safe = false
			break
		}
	}
	if safe {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// Join quotes each word and joins them with single spaces.
func Join(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, word := range words {
		quoted = append(quoted, Quote(word))
	}
	return strings.Join(quoted, " ")
}
