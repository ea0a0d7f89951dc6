package similarity

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeSource struct {
	targets    map[string]*models.Property
	byPhase    map[Phase][]Candidate
	queries    []CandidateQuery
	targetErr  error
	candidates error
}

func (f *fakeSource) TargetByID(_ context.Context, _, id string) (*models.Property, error) {
	if f.targetErr != nil {
		return nil, f.targetErr
	}
	return f.targets[id], nil
}

func (f *fakeSource) TargetByCode(_ context.Context, _, code string) (*models.Property, error) {
	if f.targetErr != nil {
		return nil, f.targetErr
	}
	return f.targets[code], nil
}

func (f *fakeSource) Candidates(_ context.Context, query CandidateQuery) ([]Candidate, error) {
	f.queries = append(f.queries, query)
	if f.candidates != nil {
		return nil, f.candidates
	}
	phase := PhaseRelaxed
	if query.PropertyType != nil {
		phase = PhaseStrict
	}
	return f.byPhase[phase], nil
}

func testEngine(source Source) *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(logger, source, DefaultConfig())
}

// closeMatch is a candidate that scores well above both phase floors.
func closeMatch(id string, createdAt time.Time) Candidate {
	p := property(func(p *models.Property) {
		p.ID = id
		p.CreatedAt = createdAt
	})
	return Candidate{Property: *p}
}

// poorMatch is a candidate dissimilar enough to land under the relaxed floor.
func poorMatch(id string) Candidate {
	p := property(func(p *models.Property) {
		p.ID = id
		p.PropertyType = models.PropertyTypeVilla
		p.BhkType = str("4BHK")
		p.Furnishing = models.FurnishingUnfurnished
		p.MinAmount = f64(900000)
		p.MaxAmount = f64(1100000)
		p.Features = database.NewJSONB([]string{"pool", "gym"})
		p.Rating = nil
	})
	return Candidate{Property: *p}
}

func TestFindSimilarNilTarget(t *testing.T) {
	source := &fakeSource{targets: map[string]*models.Property{}}
	engine := testEngine(source)

	result, err := engine.FindSimilarByID(context.Background(), "tenant-1", "missing", Options{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Target)
	assert.Empty(t, result.Items)
	assert.False(t, result.UsedFallback)
	assert.Empty(t, source.queries, "no candidate query should run for a missing target")
}

func TestFindSimilarStrictSufficient(t *testing.T) {
	now := time.Now()
	target := property(nil)

	strict := make([]Candidate, 0, 6)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		strict = append(strict, closeMatch(id, now))
	}

	source := &fakeSource{
		targets: map[string]*models.Property{"p-1": target},
		byPhase: map[Phase][]Candidate{PhaseStrict: strict},
	}
	engine := testEngine(source)

	result, err := engine.FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{})
	require.NoError(t, err)
	assert.False(t, result.UsedFallback)
	assert.Len(t, result.Items, 6)
	require.Len(t, source.queries, 1, "relaxed phase must not run when strict is sufficient")
	for _, m := range result.Items {
		assert.Equal(t, PhaseStrict, m.Phase)
	}
}

func TestFindSimilarFallback(t *testing.T) {
	now := time.Now()
	target := property(nil)

	source := &fakeSource{
		targets: map[string]*models.Property{"p-1": target},
		byPhase: map[Phase][]Candidate{
			PhaseStrict:  {closeMatch("a", now), closeMatch("b", now)},
			PhaseRelaxed: {closeMatch("b", now), closeMatch("c", now), closeMatch("d", now)},
		},
	}
	engine := testEngine(source)

	result, err := engine.FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{})
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
	require.Len(t, source.queries, 2)

	// strict entry wins the id collision on "b"
	ids := make([]string, 0, len(result.Items))
	phases := map[string]Phase{}
	for _, m := range result.Items {
		ids = append(ids, m.Property.ID)
		phases[m.Property.ID] = m.Phase
	}
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, PhaseStrict, phases["b"])
	assert.Equal(t, PhaseRelaxed, phases["c"])

	// relaxed query drops the type gate and doubles the radius
	assert.NotNil(t, source.queries[0].PropertyType)
	assert.Nil(t, source.queries[1].PropertyType)
}

func TestFindSimilarFloorFiltersPoorCandidates(t *testing.T) {
	now := time.Now()
	target := property(nil)

	source := &fakeSource{
		targets: map[string]*models.Property{"p-1": target},
		byPhase: map[Phase][]Candidate{
			PhaseStrict:  {closeMatch("good", now), poorMatch("bad")},
			PhaseRelaxed: {poorMatch("worse")},
		},
	}
	engine := testEngine(source)

	result, err := engine.FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "good", result.Items[0].Property.ID)
}

func TestFindSimilarRanking(t *testing.T) {
	now := time.Now()
	target := property(nil)

	older := closeMatch("older", now.Add(-time.Hour))
	newer := closeMatch("newer", now)
	// lower score despite being newest
	weaker := closeMatch("weaker", now.Add(time.Hour))
	weaker.Property.Rating = f64(1.0)

	minResults := 0
	source := &fakeSource{
		targets: map[string]*models.Property{"p-1": target},
		byPhase: map[Phase][]Candidate{PhaseStrict: {weaker, older, newer}},
	}
	engine := testEngine(source)

	result, err := engine.FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{MinResults: &minResults})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, "newer", result.Items[0].Property.ID, "ties break to the newest listing")
	assert.Equal(t, "older", result.Items[1].Property.ID)
	assert.Equal(t, "weaker", result.Items[2].Property.ID)
}

func TestFindSimilarExplicitZeroMinResults(t *testing.T) {
	target := property(nil)
	minResults := 0

	source := &fakeSource{
		targets: map[string]*models.Property{"p-1": target},
		byPhase: map[Phase][]Candidate{},
	}
	engine := testEngine(source)

	result, err := engine.FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{MinResults: &minResults})
	require.NoError(t, err)
	assert.False(t, result.UsedFallback)
	assert.Empty(t, result.Items)
	require.Len(t, source.queries, 1, "an empty strict phase satisfies minResults=0")
}

func TestFindSimilarLimit(t *testing.T) {
	now := time.Now()
	target := property(nil)

	strict := make([]Candidate, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		strict = append(strict, closeMatch(id, now))
	}

	source := &fakeSource{
		targets: map[string]*models.Property{"p-1": target},
		byPhase: map[Phase][]Candidate{PhaseStrict: strict},
	}
	engine := testEngine(source)

	result, err := engine.FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{Limit: 3})
	require.NoError(t, err)
	assert.False(t, result.UsedFallback)
	assert.Len(t, result.Items, 3)
}

func TestFindSimilarDistanceKm(t *testing.T) {
	now := time.Now()
	target := geoTarget()

	candidate := closeMatch("a", now)
	candidate.DistanceMeters = f64(2500)

	minResults := 0
	source := &fakeSource{
		targets: map[string]*models.Property{"p-1": target},
		byPhase: map[Phase][]Candidate{PhaseStrict: {candidate}},
	}
	engine := testEngine(source)

	result, err := engine.FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{MinResults: &minResults})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.NotNil(t, result.Items[0].DistanceKm)
	assert.InDelta(t, 2.5, *result.Items[0].DistanceKm, 1e-9)
}

func TestFindSimilarSourceErrors(t *testing.T) {
	t.Run("target lookup error propagates", func(t *testing.T) {
		source := &fakeSource{targetErr: errors.New("connection reset")}
		_, err := testEngine(source).FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{})
		assert.Error(t, err)
	})

	t.Run("candidate query error propagates", func(t *testing.T) {
		source := &fakeSource{
			targets:    map[string]*models.Property{"p-1": property(nil)},
			candidates: errors.New("query timeout"),
		}
		_, err := testEngine(source).FindSimilarByID(context.Background(), "tenant-1", "p-1", Options{})
		assert.Error(t, err)
	})
}

func TestFindSimilarByCode(t *testing.T) {
	target := property(nil)
	source := &fakeSource{
		targets: map[string]*models.Property{"PROP-1234": target},
		byPhase: map[Phase][]Candidate{},
	}
	minResults := 0

	result, err := testEngine(source).FindSimilarByCode(context.Background(), "tenant-1", "PROP-1234", Options{MinResults: &minResults})
	require.NoError(t, err)
	require.NotNil(t, result.Target)
	assert.Equal(t, "p-1", result.Target.ID)
}
