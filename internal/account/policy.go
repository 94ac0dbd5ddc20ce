package account

import "regexp"

// Validation rules for registration input. These are pure functions with no
// store access; the registration service applies them server-side and the UI
// may apply them client-side for early feedback.
var (
	// local@domain.tld shape: letters/digits/._- in the local part, a
	// dot-separated domain.
	emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

	// 3-30 characters, letters, digits, and underscore only.
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

	upperPattern  = regexp.MustCompile(`[A-Z]`)
	lowerPattern  = regexp.MustCompile(`[a-z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	symbolPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidUsername reports whether s is an acceptable username.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// StrongPassword reports whether s meets the password policy: at least 8
// characters with an uppercase letter, a lowercase letter, a digit, and a
// punctuation symbol. All four classes are mandatory, not a weighted score.
func StrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	return upperPattern.MatchString(s) &&
		lowerPattern.MatchString(s) &&
		digitPattern.MatchString(s) &&
		symbolPattern.MatchString(s)
}
