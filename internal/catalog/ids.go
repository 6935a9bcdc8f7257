package catalog

import "github.com/google/uuid"

// IDGenerator produces unique row IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 row IDs.
//
// Stateless and safe for concurrent use. Panics if UUID generation fails
// (should never happen in practice).
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
