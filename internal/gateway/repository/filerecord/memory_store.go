package filerecord

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryRow struct {
	rec Record
	seq uint64
}

type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]memoryRow
	seq  uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]memoryRow)}
}

func (s *MemoryStore) Insert(_ context.Context, rec Record) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(rec.ProjectID) == "" {
		return fmt.Errorf("project_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[rec.ID]; exists {
		return fmt.Errorf("insert %s: duplicate id", rec.ID)
	}
	s.seq++
	s.rows[rec.ID] = memoryRow{rec: cloneRecord(rec), seq: s.seq}
	return nil
}

func (s *MemoryStore) List(_ context.Context, projectID string, phase *int) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	return s.selectRows(func(r Record) bool {
		return r.ProjectID == projectID && (phase == nil || r.Phase == *phase)
	}), nil
}

func (s *MemoryStore) GetByIDs(_ context.Context, ids []string) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return s.selectRows(func(r Record) bool {
		_, ok := want[r.ID]
		return ok
	}), nil
}

func (s *MemoryStore) ListExpired(_ context.Context, now time.Time) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	return s.selectRows(func(r Record) bool {
		return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
	}), nil
}

func (s *MemoryStore) Delete(_ context.Context, ids []string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

// Len reports how many records are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryStore) selectRows(keep func(Record) bool) []Record {
	s.mu.RLock()
	matched := make([]memoryRow, 0, 16)
	for _, row := range s.rows {
		if keep(row.rec) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]Record, 0, len(matched))
	for _, row := range matched {
		out = append(out, cloneRecord(row.rec))
	}
	return out
}

func cloneRecord(r Record) Record {
	out := r
	if r.Content != nil {
		out.Content = append([]byte(nil), r.Content...)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	if r.StorageURL != nil {
		u := *r.StorageURL
		out.StorageURL = &u
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}
