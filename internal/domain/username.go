package domain

import "regexp"

// usernamePattern allows letters, digits and the separators . _ - with no
// separator at either end and no two separators in a row. Length is checked
// separately so the pattern stays readable.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+([._-][A-Za-z0-9]+)*$`)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 32
)

// ValidUsername reports whether name satisfies the account naming rules.
func ValidUsername(name string) bool {
	if len(name) < UsernameMinLen || len(name) > UsernameMaxLen {
		return false
	}
	return usernamePattern.MatchString(name)
}
