package id

import "github.com/google/uuid"

// UUID generates random (v4) identifiers.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }
