package deskguard

import "github.com/google/uuid"

// newID returns a random UUID string for new rows.
func newID() string {
	return uuid.NewString()
}
