// Package scheduler computes schedule_score (spec §4.7): a weighted blend
// of relevance, importance, and recency used to rank and select memories
// for a query.
package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/types"
)

const weightSumTolerance = 1e-6

// defaultMissingRecency is assigned to memories missing a CreatedAt, per
// spec §4.7.
const defaultMissingRecency = 0.5

// Weights are the schedule_score blend coefficients. They must be
// non-negative and sum to 1 within weightSumTolerance.
type Weights struct {
	Relevance  float64 // alpha
	Importance float64 // beta
	Recency    float64 // gamma
}

// DefaultWeights returns the spec-mandated defaults (0.5, 0.3, 0.2).
func DefaultWeights() Weights {
	return Weights{Relevance: 0.5, Importance: 0.3, Recency: 0.2}
}

// Validate reports an apperr.Validation error if any weight is negative
// or the weights do not sum to 1 within tolerance.
func (w Weights) Validate() error {
	if w.Relevance < 0 || w.Importance < 0 || w.Recency < 0 {
		return apperr.Validationf("scheduler.weights", "weights must be non-negative: %+v", w)
	}
	sum := w.Relevance + w.Importance + w.Recency
	if math.Abs(sum-1) > weightSumTolerance {
		return apperr.Validationf("scheduler.weights", "weights must sum to 1 within %.0e, got %v (%+v)", weightSumTolerance, sum, w)
	}
	return nil
}

// Scheduler computes schedule_score and selects top-k memories.
type Scheduler struct {
	weights Weights
	lambda  float64 // recency decay rate
}

// Option configures a Scheduler beyond its defaults.
type Option func(*Scheduler)

// WithWeights overrides the default (0.5, 0.3, 0.2) blend. The scheduler
// is not constructed if the weights are invalid; use New's returned error.
func WithWeights(w Weights) Option {
	return func(s *Scheduler) { s.weights = w }
}

// WithLambda overrides the default recency decay rate (0.1).
func WithLambda(lambda float64) Option {
	return func(s *Scheduler) { s.lambda = lambda }
}

// New builds a Scheduler, validating its weights.
func New(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{weights: DefaultWeights(), lambda: 0.1}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.weights.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Recency computes exp(-lambda * age_days) for a memory as of now. A nil
// createdAt (memory missing CreatedAt) returns defaultMissingRecency.
func (s *Scheduler) Recency(createdAt *time.Time, now time.Time) float64 {
	if createdAt == nil {
		return defaultMissingRecency
	}
	ageDays := now.Sub(*createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-s.lambda * ageDays)
}

// Score computes schedule_score for one candidate given its relevance
// (typically a HybridSearch fused score, already normalized to [0,1]),
// its Memory.Importance, and the current instant.
func (s *Scheduler) Score(relevance float64, m types.Memory, now time.Time) float64 {
	var createdAt *time.Time
	if !m.CreatedAt.IsZero() {
		t := m.CreatedAt
		createdAt = &t
	}
	recency := s.Recency(createdAt, now)
	return s.weights.Relevance*relevance + s.weights.Importance*m.Importance + s.weights.Recency*recency
}

// Candidate is one scored-memory input to SelectMemories.
type Candidate struct {
	Memory    types.Memory
	Relevance float64
}

// Selected is a Candidate plus its computed schedule_score.
type Selected struct {
	Memory types.Memory
	Score  float64
}

// SelectMemories returns the top-k Candidates by descending schedule_score,
// filtering out any below minScore. Ties preserve the original candidate
// order (stable sort), per spec §4.7.
func (s *Scheduler) SelectMemories(candidates []Candidate, k int, minScore float64, now time.Time) []Selected {
	scored := make([]Selected, 0, len(candidates))
	for _, c := range candidates {
		score := s.Score(c.Relevance, c.Memory, now)
		if score < minScore {
			continue
		}
		scored = append(scored, Selected{Memory: c.Memory, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
