package mask

import "strings"

// Email redacts the local part for public display: "john@x.io" -> "jo***@x.io".
// Local parts of two characters or fewer keep only their first character.
func Email(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	local, domain := []rune(email[:at]), email[at+1:]
	keep := 2
	if len(local) <= 2 {
		keep = 1
	}
	return string(local[:keep]) + "***@" + domain
}
