// Package memory implements every store repository with in-process maps.
package memory

import (
	"context"
	"sync"

	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/store"
)

// Store is safe for concurrent use. Each value is replaced as a whole under the
// write lock, so readers observe either the previous or the next value.
type Store struct {
	mu sync.RWMutex

	tokens      map[model.Address]model.TokenRecord
	secFlags    map[model.Address]model.SecurityFlags
	scamFlags   map[model.Address]model.ScamFlags
	lists       map[store.OverrideList]map[model.Address]struct{}
	audits      map[model.Address]model.AuditRecord
	auditCounts map[model.Address]uint64
	metrics     map[model.Address]model.TokenMetrics
	auditors    map[model.Address]struct{}
}

var _ store.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		tokens:    make(map[model.Address]model.TokenRecord),
		secFlags:  make(map[model.Address]model.SecurityFlags),
		scamFlags: make(map[model.Address]model.ScamFlags),
		lists: map[store.OverrideList]map[model.Address]struct{}{
			store.ListKnownScams:    {},
			store.ListTrustedTokens: {},
		},
		audits:      make(map[model.Address]model.AuditRecord),
		auditCounts: make(map[model.Address]uint64),
		metrics:     make(map[model.Address]model.TokenMetrics),
		auditors:    make(map[model.Address]struct{}),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) SaveToken(ctx context.Context, rec model.TokenRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[rec.Address] = rec.Clone()
	return nil
}

func (s *Store) GetToken(ctx context.Context, addr model.Address) (model.TokenRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.TokenRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tokens[addr]
	return rec.Clone(), ok, nil
}

func (s *Store) SaveSecurityFlags(ctx context.Context, addr model.Address, flags model.SecurityFlags) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secFlags[addr] = flags
	return nil
}

func (s *Store) GetSecurityFlags(ctx context.Context, addr model.Address) (model.SecurityFlags, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.SecurityFlags{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	flags, ok := s.secFlags[addr]
	return flags, ok, nil
}

func (s *Store) SaveScamFlags(ctx context.Context, addr model.Address, flags model.ScamFlags) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scamFlags[addr] = flags
	return nil
}

func (s *Store) GetScamFlags(ctx context.Context, addr model.Address) (model.ScamFlags, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.ScamFlags{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	flags, ok := s.scamFlags[addr]
	return flags, ok, nil
}

func (s *Store) SetListed(ctx context.Context, list store.OverrideList, addr model.Address, listed bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.lists[list]
	if !ok {
		members = make(map[model.Address]struct{})
		s.lists[list] = members
	}
	_, was := members[addr]
	if listed {
		members[addr] = struct{}{}
	} else {
		delete(members, addr)
	}
	return was != listed, nil
}

func (s *Store) IsListed(ctx context.Context, list store.OverrideList, addr model.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lists[list][addr]
	return ok, nil
}

func (s *Store) ReplaceAuditRecord(ctx context.Context, rec model.AuditRecord) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits[rec.TokenAddress] = rec
	s.auditCounts[rec.Auditor]++
	return s.auditCounts[rec.Auditor], nil
}

func (s *Store) GetAuditRecord(ctx context.Context, token model.Address) (model.AuditRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.AuditRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.audits[token]
	return rec, ok, nil
}

func (s *Store) GetAuditCount(ctx context.Context, auditor model.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auditCounts[auditor], nil
}

func (s *Store) SaveTokenMetrics(ctx context.Context, token model.Address, m model.TokenMetrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[token] = m
	return nil
}

func (s *Store) GetTokenMetrics(ctx context.Context, token model.Address) (model.TokenMetrics, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.TokenMetrics{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[token]
	return m, ok, nil
}

func (s *Store) SetAuthorized(ctx context.Context, auditor model.Address, authorized bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, was := s.auditors[auditor]
	if authorized {
		s.auditors[auditor] = struct{}{}
	} else {
		delete(s.auditors, auditor)
	}
	return was != authorized, nil
}

func (s *Store) IsAuthorized(ctx context.Context, auditor model.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.auditors[auditor]
	return ok, nil
}
