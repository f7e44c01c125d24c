// Package validate holds the field predicates used while collecting customer
// details. Each returns pass/fail plus a fixed rejection message; a failure is
// reported to the conversation and the same prompt re-issued, nothing raises.
package validate

const (
	phoneRejection = "Invalid phone number. Please enter exactly 10 digits."
	emailRejection = "Invalid email address. Please enter a valid email."
)

// Phone accepts strings of exactly 10 decimal digits.
func Phone(s string) (bool, string) {
	if len(s) != 10 {
		return false, phoneRejection
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false, phoneRejection
		}
	}
	return true, ""
}

// Email accepts any string containing both '@' and '.'. Deliberately
// permissive; the upstream flow never asked for RFC parsing.
func Email(s string) (bool, string) {
	hasAt := false
	hasDot := false
	for _, r := range s {
		switch r {
		case '@':
			hasAt = true
		case '.':
			hasDot = true
		}
	}
	if !hasAt || !hasDot {
		return false, emailRejection
	}
	return true, ""
}
