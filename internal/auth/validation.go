package auth

import (
	"fmt"
	"strings"
)

// ValidatePassword checks minimum/maximum length and trivially weak inputs.
// No character class requirements (NIST 800-63B).
func ValidatePassword(password string, minLength int) error {
	if minLength == 0 {
		minLength = 8
	}

	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}

	// Cap length to bound KDF cost
	if len(password) > 128 {
		return fmt.Errorf("password must be at most 128 characters long")
	}

	if isRepeatingChar(password) {
		return fmt.Errorf("password cannot be a single repeating character")
	}

	return nil
}

// isRepeatingChar checks if the password is just the same character repeated
func isRepeatingChar(s string) bool {
	if len(s) == 0 {
		return false
	}
	runes := []rune(s)
	first := runes[0]
	for _, r := range runes[1:] {
		if r != first {
			return false
		}
	}
	return true
}

// ValidateEmail performs a light structural check on an email address.
// Uniqueness is enforced at the service layer with a case-sensitive exact
// match against the store.
func ValidateEmail(email string) error {
	if len(email) < 3 || len(email) > 255 {
		return fmt.Errorf("invalid email length")
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid email format")
	}
	if !strings.Contains(parts[1], ".") {
		return fmt.Errorf("invalid email domain")
	}
	return nil
}

// ValidateUsername checks the login account name
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 100 {
		return fmt.Errorf("username must be between 3 and 100 characters")
	}
	for _, r := range username {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') &&
			r != '.' && r != '_' && r != '-' && r != '@' {
			return fmt.Errorf("username contains invalid characters")
		}
	}
	return nil
}
