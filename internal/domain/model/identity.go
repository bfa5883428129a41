package model

import "strings"

// Identity is an already-authenticated principal (user, owner or oracle).
type Identity string

// Valid reports whether id is non-blank.
func (id Identity) Valid() bool { return strings.TrimSpace(string(id)) != "" }

// Role is a privilege an identity may hold.
type Role string

// Roles checked by operations.
const (
	RoleOwner  Role = "owner"
	RoleOracle Role = "oracle"
)
