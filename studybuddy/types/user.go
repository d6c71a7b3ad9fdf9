// studybuddy/types/user.go
package types

import (
	"fmt"
	"regexp"
)

// UserRecord is one entry of the credential file. The username is the map key
// in the file, so it is not serialized inside the record.
type UserRecord struct {
	Username     string `json:"-"`
	PasswordHash string `json:"password_hash"`
	MobileNumber string `json:"mobile_number"`
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidateUsername rejects names that cannot safely name a chat directory.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) || username == "." || username == ".." {
		return fmt.Errorf("%w: username must be 1-64 letters, digits, '.', '_' or '-'", ErrInvalidInput)
	}
	return nil
}
