// Package normalize canonicalizes user-entered strings before they are
// stored or compared.
package normalize

import "strings"

func folded(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LoginID is the lookup form of a login identifier. Sign-in is case
// insensitive, so "Ada@Example.com" and "ada@example.com " are one account.
func LoginID(s string) string { return folded(s) }

// Email is the stored form of an address.
func Email(s string) string { return folded(s) }

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Mood, Status and Role reduce an enumerated form value to its key.
func Mood(s string) string   { return folded(s) }
func Status(s string) string { return folded(s) }
func Role(s string) string   { return folded(s) }

// Notes trims free-text journal input and converts CRLF line endings to LF.
func Notes(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
