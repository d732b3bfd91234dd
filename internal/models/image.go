package models

import "time"

// Image records one successful upload. The bytes themselves live in the
// staging area under OriginalName and ProcessedName, scoped to UserID.
type Image struct {
	ID            string
	UserID        string
	OriginalName  string
	ProcessedName string
	Width         int
	Height        int
	SizeBytes     int64
	Checksum      []byte
	CreatedAt     time.Time
}
