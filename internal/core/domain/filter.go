package domain

import "time"

// SessionFilter selects sessions for listing and for the reaper. Zero values mean "any".
type SessionFilter struct {
	TenantID      string
	Statuses      []SessionStatus
	Kind          SessionKind
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresBefore *time.Time
	Limit         int
	Offset        int
}

// DefaultListLimit bounds list queries without an explicit limit
const DefaultListLimit = 100

// MaxListLimit bounds any list query
const MaxListLimit = 1000

// EffectiveLimit clamps the filter limit into (0, MaxListLimit]
func (f SessionFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Matches applies the filter to a session held in memory
func (f SessionFilter) Matches(s TransferSession) bool {
	if f.TenantID != "" && s.Owner.TenantID != f.TenantID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if st == s.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Kind != "" && s.Kind != f.Kind {
		return false
	}
	if f.CreatedAfter != nil && !s.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !s.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	if f.ExpiresBefore != nil && !s.ExpiresAt.Before(*f.ExpiresBefore) {
		return false
	}
	return true
}
