// Package access holds the owner and oracle role assignments.
package access

import (
	"fmt"

	"github.com/okian/moodmarket/internal/domain/model"
)

// Roles maps the two privileged roles to identities. The owner is fixed at
// construction; the oracle may be registered once.
type Roles struct {
	owner  model.Identity
	oracle model.Identity
}

// Option configures Roles.
type Option func(*Roles)

// WithOracle pre-registers the oracle identity.
func WithOracle(id model.Identity) Option {
	return func(r *Roles) {
		if id.Valid() {
			r.oracle = id
		}
	}
}

// New creates the role registry for owner.
func New(owner model.Identity, opts ...Option) *Roles {
	r := &Roles{owner: owner}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Owner returns the owner identity.
func (r *Roles) Owner() model.Identity { return r.owner }

// Oracle returns the oracle identity and whether one is registered.
func (r *Roles) Oracle() (model.Identity, bool) { return r.oracle, r.oracle != "" }

// IsOwner reports whether id is the owner.
func (r *Roles) IsOwner(id model.Identity) bool { return id.Valid() && id == r.owner }

// IsOracle reports whether id is the registered oracle.
func (r *Roles) IsOracle(id model.Identity) bool { return id.Valid() && id == r.oracle }

// Has reports whether id holds role.
func (r *Roles) Has(id model.Identity, role model.Role) bool {
	switch role {
	case model.RoleOwner:
		return r.IsOwner(id)
	case model.RoleOracle:
		return r.IsOracle(id)
	default:
		return false
	}
}

// Require fails with ErrUnauthorized unless id holds at least one of roles.
func (r *Roles) Require(id model.Identity, roles ...model.Role) error {
	for _, role := range roles {
		if r.Has(id, role) {
			return nil
		}
	}
	return fmt.Errorf("%s lacks %v: %w", id, roles, model.ErrUnauthorized)
}

// RegisterOracle sets the oracle. Only the owner may call it and only while
// no oracle is registered; there is no rotation.
func (r *Roles) RegisterOracle(caller, oracle model.Identity) error {
	if err := r.Require(caller, model.RoleOwner); err != nil {
		return fmt.Errorf("register oracle: %w", err)
	}
	if r.oracle != "" {
		return fmt.Errorf("register oracle: already registered: %w", model.ErrUnauthorized)
	}
	if !oracle.Valid() {
		return fmt.Errorf("register oracle: empty identity: %w", model.ErrInvalidInput)
	}
	r.oracle = oracle
	return nil
}
