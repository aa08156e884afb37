package lendkit

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Policy is the capability table: the features each role grants, either
// everywhere or only inside the libraries assigned to the user.
// It is built at startup and should be treated as immutable afterwards.
type Policy struct {
	mu    sync.RWMutex
	roles map[Role]*RolePolicy
}

// RolePolicy holds the grants of one role.
type RolePolicy struct {
	role     Role
	global   []string // granted in every library
	scoped   []string // granted only in assigned libraries
	inherits []Role
	policy   *Policy
}

// NewPolicy creates an empty policy. An empty policy grants nothing.
func NewPolicy() *Policy {
	return &Policy{
		roles: make(map[Role]*RolePolicy),
	}
}

// DefaultPolicy returns the lending capability table:
//
//	USER       browse the catalog, borrow, return, see their history
//	LIBRARIAN  USER features, plus inventory and borrowing records in assigned libraries
//	ADMIN      every feature
func DefaultPolicy() *Policy {
	return NewPolicy().
		Role(RoleUser).
		Allow(FeatureCatalogBrowse, "borrowing.*").
		Role(RoleLibrarian).
		Inherit(RoleUser).
		AllowInLibrary("inventory.*", FeatureRecordsView).
		Role(RoleAdmin).
		Allow("*").
		Policy()
}

// Role starts (or resumes) defining the grants of a role.
//
// Example:
//
//	policy.Role(lendkit.RoleLibrarian).
//	    Inherit(lendkit.RoleUser).
//	    AllowInLibrary("inventory.*")
func (p *Policy) Role(role Role) *RolePolicy {
	p.mu.Lock()
	defer p.mu.Unlock()

	rp, ok := p.roles[role]
	if !ok {
		rp = &RolePolicy{role: role, policy: p}
		p.roles[role] = rp
	}
	return rp
}

// Defined reports whether the role has an entry in the policy.
func (p *Policy) Defined(role Role) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.roles[role]
	return ok
}

// Grants returns the patterns a role holds, including inherited ones.
// global patterns apply everywhere; scoped ones only in assigned libraries.
func (p *Policy) Grants(role Role) (global, scoped []string) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[Role]bool)
	var walk func(r Role)
	walk = func(r Role) {
		if seen[r] {
			return
		}
		seen[r] = true
		rp, ok := p.roles[r]
		if !ok {
			return
		}
		global = append(global, rp.global...)
		scoped = append(scoped, rp.scoped...)
		for _, parent := range rp.inherits {
			walk(parent)
		}
	}
	walk(role)
	return global, scoped
}

// Features returns every concrete feature the policy knows about: the default
// lending features plus any non-wildcard feature named by a grant, sorted.
func (p *Policy) Features() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := slices.Clone(AllFeatures)
	for _, rp := range p.roles {
		for _, f := range slices.Concat(rp.global, rp.scoped) {
			if !strings.Contains(f, "*") {
				out = append(out, f)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Validate checks every role, every inherited role and every grant pattern.
// Inheritance cycles are rejected.
func (p *Policy) Validate() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for role, rp := range p.roles {
		if !role.Valid() {
			return invalidRoleError(role)
		}
		for _, f := range slices.Concat(rp.global, rp.scoped) {
			if err := ValidateFeature(f); err != nil {
				return err
			}
		}
		for _, parent := range rp.inherits {
			if _, ok := p.roles[parent]; !ok {
				return NewError(ErrValidation, fmt.Sprintf("role %s inherits undefined role %s", role, parent))
			}
		}
	}

	for role := range p.roles {
		if p.cycles(role, role, make(map[Role]bool)) {
			return NewError(ErrValidation, fmt.Sprintf("role %s inherits from itself", role))
		}
	}
	return nil
}

func (p *Policy) cycles(start, current Role, seen map[Role]bool) bool {
	rp, ok := p.roles[current]
	if !ok || seen[current] {
		return false
	}
	seen[current] = true
	for _, parent := range rp.inherits {
		if parent == start || p.cycles(start, parent, seen) {
			return true
		}
	}
	return false
}

// Allow grants features to the role in every library.
// Supports wildcards: "*", "area.*", "*.action".
func (rp *RolePolicy) Allow(features ...string) *RolePolicy {
	rp.policy.mu.Lock()
	defer rp.policy.mu.Unlock()
	rp.global = append(rp.global, features...)
	return rp
}

// AllowInLibrary grants features to the role only inside the libraries
// assigned to the user.
func (rp *RolePolicy) AllowInLibrary(features ...string) *RolePolicy {
	rp.policy.mu.Lock()
	defer rp.policy.mu.Unlock()
	rp.scoped = append(rp.scoped, features...)
	return rp
}

// Inherit adds every grant of another role to this one.
func (rp *RolePolicy) Inherit(roles ...Role) *RolePolicy {
	rp.policy.mu.Lock()
	defer rp.policy.mu.Unlock()
	rp.inherits = append(rp.inherits, roles...)
	return rp
}

// Role continues defining roles on the policy (fluent API).
func (rp *RolePolicy) Role(role Role) *RolePolicy {
	return rp.policy.Role(role)
}

// Policy returns the policy this role belongs to.
func (rp *RolePolicy) Policy() *Policy {
	return rp.policy
}

// Name returns the role this entry defines.
func (rp *RolePolicy) Name() Role {
	return rp.role
}
