package ids

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// New returns a random identifier for accounts and sessions.
func New() string {
	return uuid.NewString()
}

// NewSortable returns a time-ordered identifier, used for staged image records.
func NewSortable() string {
	return ksuid.New().String()
}
