package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	DatasetID ID
	VersionID ID
	// ColumnKey is a deduplicated, stable internal column identifier,
	// distinct from the column's possibly-duplicated display name.
	ColumnKey ID
)

func (id DatasetID) String() string { return ID(id).String() }
func (id VersionID) String() string { return ID(id).String() }
func (k ColumnKey) String() string  { return ID(k).String() }

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(s), nil
}

// ParseVersionID parses a string into VersionID
func ParseVersionID(s string) (VersionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("version ID cannot be empty")
	}
	return VersionID(s), nil
}

// ParseColumnKey parses a string into ColumnKey
func ParseColumnKey(s string) (ColumnKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("column key cannot be empty")
	}
	return ColumnKey(s), nil
}
