package domain

import "strings"

// SessionRecord is what is persisted after a successful login
type SessionRecord struct {
	Token     Token  `json:"token"`
	UserID    string `json:"user_id"`
	Email     string `json:"user_email"`
	Name      string `json:"user_name"`
	FirstName string `json:"user_first_name"`
	LastName  string `json:"user_last_name"`
}

// SplitName splits a display name into first and last name.
// Only the first two words are kept; a blank name yields "User".
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "User", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[1]
	}
}
