package interpret

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"glove-backend/internal/models"
)

// Simulator answers with a uniformly chosen catalog entry. The sensor payload
// is not inspected.
type Simulator struct {
	catalog []CatalogEntry

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulator builds a simulator over catalog. A nil rng gets a time seed.
func NewSimulator(catalog []CatalogEntry, rng *rand.Rand) (*Simulator, error) {
	if err := validateCatalog(catalog); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{
		catalog: append([]CatalogEntry(nil), catalog...),
		rng:     rng,
		now:     time.Now,
	}, nil
}

func (s *Simulator) Interpret(_ context.Context, _ *models.InterpretationRequest) (*models.InterpretationResult, error) {
	s.mu.Lock()
	picked := s.catalog[s.rng.Intn(len(s.catalog))]
	s.mu.Unlock()

	return &models.InterpretationResult{
		InterpretedText:   picked.InterpretedText,
		Command:           picked.Command,
		Confidence:        models.ClampConfidence(picked.Confidence),
		ActionDescription: picked.ActionDescription,
		Timestamp:         s.now().UnixMilli(),
	}, nil
}
