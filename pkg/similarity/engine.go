package similarity

import (
	"context"
	"sort"
	"strconv"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Candidate is one materialized row from the candidate query: the property
// plus, in geo mode, its store-computed distance from the target.
type Candidate struct {
	Property       models.Property
	DistanceMeters *float64
}

// Source supplies targets and candidates from the store. Target lookups
// return (nil, nil) when the property does not exist; absence is an outcome
// here, not an error.
type Source interface {
	TargetByID(ctx context.Context, tenantID, id string) (*models.Property, error)
	TargetByCode(ctx context.Context, tenantID, code string) (*models.Property, error)
	Candidates(ctx context.Context, query CandidateQuery) ([]Candidate, error)
}

// Match is one scored candidate in a similarity result.
type Match struct {
	Property models.Property `json:"property"`
	Scores   Breakdown       `json:"scores"`
	// DistanceKm is present only for candidates retrieved through a geo
	// query.
	DistanceKm *float64 `json:"distance_km,omitempty"`
	// Phase records which strictness tier produced the match.
	Phase Phase `json:"phase"`
}

// Result is the outcome of a similarity lookup. A nil Target means the
// property was not found; callers must check it before trusting Items.
type Result struct {
	Target       *models.Property `json:"target"`
	Items        []Match          `json:"items"`
	UsedFallback bool             `json:"used_fallback"`
}

// Config tunes the engine. Weights must sum to 1 for final scores to stay in
// [0,1]; the phase floors are fixed by the algorithm, not configurable.
type Config struct {
	Weights       Weights
	MaxCandidates int // rows fetched per phase for in-process scoring (default: 500)
}

// DefaultConfig returns the production engine configuration.
func DefaultConfig() Config {
	return Config{
		Weights:       DefaultWeights(),
		MaxCandidates: 500,
	}
}

// Engine runs the two-phase similarity search: a strict pass first, then a
// relaxed pass only when the strict pass comes up short.
type Engine struct {
	logger ectologger.Logger
	source Source
	scorer *Scorer
	config Config
}

// NewEngine creates a similarity engine over the given candidate source.
func NewEngine(logger ectologger.Logger, source Source, config Config) *Engine {
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultConfig().MaxCandidates
	}
	return &Engine{
		logger: logger,
		source: source,
		scorer: NewScorer(config.Weights),
		config: config,
	}
}

// FindSimilarByID resolves the target by id and runs the similarity search.
func (e *Engine) FindSimilarByID(ctx context.Context, tenantID, propertyID string, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "similarity.Engine.FindSimilarByID")
	defer span.End()

	target, err := e.source.TargetByID(ctx, tenantID, propertyID)
	if err != nil {
		return nil, err
	}
	return e.FindSimilar(ctx, target, opts)
}

// FindSimilarByCode resolves the target by its unique property code and runs
// the similarity search.
func (e *Engine) FindSimilarByCode(ctx context.Context, tenantID, code string, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "similarity.Engine.FindSimilarByCode")
	defer span.End()

	target, err := e.source.TargetByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	return e.FindSimilar(ctx, target, opts)
}

// FindSimilar is the phase orchestrator. Phase 1 runs with strict filters;
// phase 2 runs only when phase 1 yields fewer than minResults items, with the
// type gate dropped and the radius doubled. Merged results keep phase-1
// entries on id collision.
func (e *Engine) FindSimilar(ctx context.Context, target *models.Property, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "similarity.Engine.FindSimilar")
	defer span.End()

	if target == nil {
		metrics.SimilarQueriesTotal.WithLabelValues("", "target_not_found").Inc()
		return &Result{Target: nil, Items: []Match{}, UsedFallback: false}, nil
	}

	opts = opts.withDefaults()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": target.TenantID,
		"target_id": target.ID,
	})

	strict, err := e.runPhase(ctx, target, opts, PhaseStrict)
	if err != nil {
		return nil, err
	}
	if len(strict) > opts.Limit {
		strict = strict[:opts.Limit]
	}

	if len(strict) >= *opts.MinResults {
		log.WithFields(map[string]any{"match_count": len(strict)}).Debug("Strict phase sufficient")
		metrics.SimilarQueriesTotal.WithLabelValues(target.TenantID, "strict").Inc()
		return &Result{Target: target, Items: strict, UsedFallback: false}, nil
	}

	relaxed, err := e.runPhase(ctx, target, opts, PhaseRelaxed)
	if err != nil {
		return nil, err
	}

	merged := mergeMatches(strict, relaxed, opts.Limit)

	log.WithFields(map[string]any{
		"strict_count":  len(strict),
		"relaxed_count": len(relaxed),
		"merged_count":  len(merged),
	}).Debug("Relaxed phase merged")

	metrics.SimilarQueriesTotal.WithLabelValues(target.TenantID, "fallback").Inc()
	metrics.SimilarFallbackTotal.WithLabelValues(target.TenantID).Inc()

	return &Result{Target: target, Items: merged, UsedFallback: true}, nil
}

// runPhase fetches one phase's candidate set, scores it in-process, drops
// sub-floor candidates, and ranks the rest.
func (e *Engine) runPhase(ctx context.Context, target *models.Property, opts Options, phase Phase) ([]Match, error) {
	ctx, span := tracing.StartSpan(ctx, "similarity.Engine.runPhase")
	defer span.End()

	query := BuildCandidateQuery(target, opts, phase, e.config.MaxCandidates)

	candidates, err := e.source.Candidates(ctx, query)
	if err != nil {
		return nil, err
	}

	metrics.SimilarCandidatesScored.WithLabelValues(strconv.Itoa(int(phase))).Observe(float64(len(candidates)))

	floor := phase.Floor()
	maxDistance := query.EffectiveMaxDistance()

	matches := make([]Match, 0, len(candidates))
	for i := range candidates {
		candidate := &candidates[i]
		breakdown := e.scorer.Score(target, &candidate.Property, candidate.DistanceMeters, maxDistance)
		if breakdown.Final < floor {
			continue
		}

		match := Match{
			Property: candidate.Property,
			Scores:   breakdown,
			Phase:    phase,
		}
		if candidate.DistanceMeters != nil {
			km := *candidate.DistanceMeters / 1000
			match.DistanceKm = &km
		}
		matches = append(matches, match)
	}

	sortMatches(matches)
	return matches, nil
}

// sortMatches ranks by final score descending, newest listing first on ties.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Scores.Final != matches[j].Scores.Final {
			return matches[i].Scores.Final > matches[j].Scores.Final
		}
		return matches[i].Property.CreatedAt.After(matches[j].Property.CreatedAt)
	})
}

// mergeMatches unions the two phases, deduplicated by property id. Strict
// entries are inserted first so they win on collision.
func mergeMatches(strict, relaxed []Match, limit int) []Match {
	seen := make(map[string]struct{}, len(strict)+len(relaxed))
	merged := make([]Match, 0, limit)

	for _, m := range strict {
		if _, ok := seen[m.Property.ID]; ok {
			continue
		}
		seen[m.Property.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range relaxed {
		if _, ok := seen[m.Property.ID]; ok {
			continue
		}
		seen[m.Property.ID] = struct{}{}
		merged = append(merged, m)
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
