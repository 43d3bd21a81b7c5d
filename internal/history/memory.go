package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"glove-backend/internal/models"
)

type memoryEntry struct {
	seq    uint64
	record models.InterpretationRecord
}

// MemoryStore is a process-lifetime Store. It never evicts.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []memoryEntry
	byID    map[string]int
	nextSeq uint64

	newID func() string
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]int),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, rec *models.InterpretationRecord) (*models.InterpretationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	stored.ID = s.newID()
	for _, taken := s.byID[stored.ID]; taken; _, taken = s.byID[stored.ID] {
		stored.ID = s.newID()
	}
	if stored.Timestamp == 0 {
		stored.Timestamp = s.now().UnixMilli()
	}

	s.nextSeq++
	s.byID[stored.ID] = len(s.entries)
	s.entries = append(s.entries, memoryEntry{seq: s.nextSeq, record: stored})

	out := stored
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*models.InterpretationRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	snapshot := make([]memoryEntry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].record.Timestamp != snapshot[j].record.Timestamp {
			return snapshot[i].record.Timestamp > snapshot[j].record.Timestamp
		}
		return snapshot[i].seq > snapshot[j].seq
	})

	if len(snapshot) > limit {
		snapshot = snapshot[:limit]
	}
	out := make([]*models.InterpretationRecord, len(snapshot))
	for i := range snapshot {
		rec := snapshot[i].record
		out[i] = &rec
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.InterpretationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, false, nil
	}
	rec := s.entries[idx].record
	return &rec, true, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
