package dashboard

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimalab/pimadash/internal/aggregate"
)

func withNow(t *testing.T, now *time.Time) {
	t.Helper()
	original := nowFunc
	nowFunc = func() time.Time { return *now }
	t.Cleanup(func() { nowFunc = original })
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	table := pimaTable(t)
	return NewRegistry(table, aggregate.Summarize(table), DefaultLayout())
}

func TestRegistryCreateGetRemove(t *testing.T) {
	r := newTestRegistry(t)

	s := r.Create()
	require.NotNil(t, s)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	got, ok = r.Lookup(s.ID.String())
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = r.Lookup("not-a-uuid")
	assert.False(t, ok)
	_, ok = r.Get(uuid.New())
	assert.False(t, ok)

	r.Remove(s.ID)
	assert.Equal(t, 0, r.Len())
}

func TestSessionsAreIndependent(t *testing.T) {
	r := newTestRegistry(t)
	a, b := r.Create(), r.Create()

	_, ok := a.Apply(Event{Selector: SelectorHistogramX, Value: "Age"})
	require.True(t, ok)

	figA, _ := a.Figure("histogram")
	figB, _ := b.Figure("histogram")
	assert.Equal(t, "Histogram - Age", figA.Title)
	assert.Equal(t, "Histogram - Pregnancies", figB.Title)

	initial, _ := r.Initial().Figure("histogram")
	assert.Equal(t, "Histogram - Pregnancies", initial.Title)
}

func TestSessionSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	s := r.Create()

	snap := s.Snapshot()
	assert.Equal(t, s.ID.String(), snap.SessionID)
	assert.Len(t, snap.Widgets, len(DefaultLayout()))
	assert.Equal(t, "Glucose", snap.Selections[SelectorConfusionFeature])
	assert.Contains(t, snap.Options, "BMI")
	assert.NotContains(t, snap.Options, "PatientID")
}

func TestSessionApplyIsSerialized(t *testing.T) {
	r := newTestRegistry(t)
	s := r.Create()
	columns := []string{"Glucose", "BMI", "Age", "Insulin"}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Apply(Event{Selector: SelectorHistogramX, Value: columns[i%len(columns)]})
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	fig, _ := s.Figure("histogram")
	assert.Equal(t, "Histogram - "+s.Snapshot().Selections[SelectorHistogramX], fig.Title)
}

func TestRegistryExpireIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	withNow(t, &now)

	r := newTestRegistry(t)
	stale := r.Create()
	now = now.Add(20 * time.Minute)
	fresh := r.Create()

	removed := r.ExpireIdle(now.Add(-10 * time.Minute))
	assert.Equal(t, 1, removed)

	_, ok := r.Get(stale.ID)
	assert.False(t, ok)
	_, ok = r.Get(fresh.ID)
	assert.True(t, ok)
}

func TestSessionTouchExtendsLifetime(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	withNow(t, &now)

	r := newTestRegistry(t)
	s := r.Create()
	now = now.Add(time.Hour)
	s.Touch()

	assert.Equal(t, now, s.LastSeen())
	assert.Equal(t, 0, r.ExpireIdle(now.Add(-time.Minute)))
}
