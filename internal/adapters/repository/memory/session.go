package memory

import (
	"context"
	"sort"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

type sessionRepository struct {
	uow *unitOfWork
}

func idemKey(tenantID, key string) string {
	return tenantID + "\x00" + key
}

// copySession detaches a session from the caller; parts live in the part repository
func copySession(s domain.TransferSession) domain.TransferSession {
	if s.Multipart != nil {
		m := *s.Multipart
		m.Parts = nil
		s.Multipart = &m
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

func (r *sessionRepository) Create(ctx context.Context, session domain.TransferSession) error {
	return r.uow.run(func(st *state) error {
		k := idemKey(session.Owner.TenantID, session.IdempotencyKey)
		if _, ok := st.idemKeys[k]; ok {
			return domain.ErrIdempotencyKeyExists
		}
		session.Version = 0
		st.sessions[session.ID] = copySession(session)
		st.idemKeys[k] = session.ID
		return nil
	})
}

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	var out *domain.TransferSession
	err := r.uow.run(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return domain.ErrSessionNotFound
		}
		c := copySession(s)
		out = &c
		return nil
	})
	return out, err
}

func (r *sessionRepository) FindByIdempotencyKey(ctx context.Context, tenantID string, key string) (*domain.TransferSession, error) {
	var out *domain.TransferSession
	err := r.uow.run(func(st *state) error {
		id, ok := st.idemKeys[idemKey(tenantID, key)]
		if !ok {
			return domain.ErrSessionNotFound
		}
		c := copySession(st.sessions[id])
		out = &c
		return nil
	})
	return out, err
}

func (r *sessionRepository) Update(ctx context.Context, session *domain.TransferSession) error {
	return r.uow.run(func(st *state) error {
		stored, ok := st.sessions[session.ID]
		if !ok {
			return domain.ErrSessionNotFound
		}
		if stored.Version != session.Version {
			return domain.ErrVersionConflict
		}
		session.Version++
		st.sessions[session.ID] = copySession(*session)
		return nil
	})
}

func (r *sessionRepository) List(ctx context.Context, filter domain.SessionFilter) ([]domain.TransferSession, error) {
	var out []domain.TransferSession
	err := r.uow.run(func(st *state) error {
		for _, s := range st.sessions {
			if filter.Matches(s) {
				out = append(out, copySession(s))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset >= len(out) {
		return []domain.TransferSession{}, nil
	}
	out = out[filter.Offset:]
	if limit := filter.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type partRepository struct {
	uow *unitOfWork
}

func (r *partRepository) Add(ctx context.Context, sessionID uuid.UUID, part domain.CompletedPart) error {
	return r.uow.run(func(st *state) error {
		if _, ok := st.sessions[sessionID]; !ok {
			return domain.ErrSessionNotFound
		}
		parts, ok := st.parts[sessionID]
		if !ok {
			parts = map[int]domain.CompletedPart{}
			st.parts[sessionID] = parts
		}
		if _, exists := parts[part.PartNumber]; exists {
			return domain.ErrDuplicatePart
		}
		part.ETag = domain.NormalizeETag(part.ETag)
		parts[part.PartNumber] = part
		return nil
	})
}

func (r *partRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.CompletedPart, error) {
	var out []domain.CompletedPart
	err := r.uow.run(func(st *state) error {
		for _, p := range st.parts[sessionID] {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].PartNumber < out[j].PartNumber
	})
	return out, err
}
