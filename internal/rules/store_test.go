package rules

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gxo-labs/visacheck/internal/metrics"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/rules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usRules = rules.DestinationRules{
		"TH": {Type: rules.VisaFree, MaxStay: "60 days", Source: "US State Department, Jan 2026"},
		"JP": {Type: rules.VisaFree, MaxStay: "90 days", Source: "MOFA Japan"},
	}
	zaRules = rules.DestinationRules{
		"TH": {Type: rules.VisaFree, MaxStay: "30 days", Source: "Thai Embassy, Jan 2026"},
	}
)

type countingLoader struct {
	calls atomic.Int32
	table rules.DestinationRules
	err   error
	gate  chan struct{}
}

func (c *countingLoader) load(ctx context.Context) (rules.DestinationRules, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.table, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Emit(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) types() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

func newRegistry(t *testing.T, loaders map[string]rules.Loader) *StaticRegistry {
	t.Helper()
	r := NewStaticRegistry()
	for code, l := range loaders {
		require.NoError(t, r.Register(code, l))
	}
	return r
}

func TestLoadRules_CachesSuccessfulLoad(t *testing.T) {
	us := &countingLoader{table: usRules}
	store := NewStore(newRegistry(t, map[string]rules.Loader{"US": us.load}))
	ctx := context.Background()

	first, ok := store.LoadRules(ctx, "US")
	require.True(t, ok)
	second, ok := store.LoadRules(ctx, "US")
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, us.calls.Load())
	assert.Equal(t, []string{"US"}, store.LoadedNationalities())
}

func TestLoadRules_ReturnedTableIsACopy(t *testing.T) {
	us := &countingLoader{table: rules.DestinationRules{"TH": usRules["TH"]}}
	store := NewStore(newRegistry(t, map[string]rules.Loader{"US": us.load}))

	table, ok := store.LoadRules(context.Background(), "US")
	require.True(t, ok)
	delete(table, "TH")

	again, _ := store.GetCached("US")
	assert.Contains(t, again, "TH")

	hit, ok := store.LoadRules(context.Background(), "US")
	require.True(t, ok)
	delete(hit, "TH")

	again, _ = store.GetCached("US")
	assert.Contains(t, again, "TH")
	_, found := store.Resolve(context.Background(), "US", "TH")
	assert.True(t, found)
	assert.EqualValues(t, 1, us.calls.Load())
}

func TestLoadRules_Unsupported(t *testing.T) {
	store := NewStore(newRegistry(t, nil))
	table, ok := store.LoadRules(context.Background(), "XX")
	assert.False(t, ok)
	assert.Nil(t, table)
	assert.Empty(t, store.LoadedNationalities())
}

func TestLoadRules_FailureNotCachedAndRetriedOnDemand(t *testing.T) {
	bus := &recordingBus{}
	failing := &countingLoader{err: errors.New("disk on fire")}
	store := NewStore(newRegistry(t, map[string]rules.Loader{"ZA": failing.load}), WithEventBus(bus))
	ctx := context.Background()

	_, ok := store.LoadRules(ctx, "ZA")
	assert.False(t, ok)
	_, cached := store.GetCached("ZA")
	assert.False(t, cached)

	failing.err = nil
	failing.table = zaRules
	table, ok := store.LoadRules(ctx, "ZA")
	require.True(t, ok)
	assert.Equal(t, "30 days", table["TH"].MaxStay)
	assert.EqualValues(t, 2, failing.calls.Load())
	assert.Equal(t, []events.EventType{events.RulesLoadFailed, events.RulesLoaded}, bus.types())
}

func TestLoadRules_LoadPolicyRetriesWithinOneLoad(t *testing.T) {
	var calls atomic.Int32
	flaky := func(ctx context.Context) (rules.DestinationRules, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return usRules, nil
	}
	store := NewStore(newRegistry(t, map[string]rules.Loader{"US": flaky}), WithLoadPolicy(3, 0))

	_, ok := store.LoadRules(context.Background(), "US")
	assert.True(t, ok)
	assert.EqualValues(t, 3, calls.Load())
}

func TestLoadRules_ConcurrentCallsShareOneLoad(t *testing.T) {
	us := &countingLoader{table: usRules, gate: make(chan struct{})}
	store := NewStore(newRegistry(t, map[string]rules.Loader{"US": us.load}))

	const callers = 10
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.LoadRules(context.Background(), "US")
		}(i)
	}

	require.Eventually(t, func() bool { return us.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(us.gate)
	wg.Wait()

	assert.EqualValues(t, 1, us.calls.Load())
	for i, ok := range results {
		assert.True(t, ok, "caller %d", i)
	}
}

func TestLoadRules_CallerCancellationDoesNotAbortSharedLoad(t *testing.T) {
	us := &countingLoader{table: usRules, gate: make(chan struct{})}
	store := NewStore(newRegistry(t, map[string]rules.Loader{"US": us.load}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		_, ok := store.LoadRules(ctx, "US")
		done <- ok
	}()
	require.Eventually(t, func() bool { return us.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.False(t, <-done)

	close(us.gate)
	require.Eventually(t, func() bool {
		_, ok := store.GetCached("US")
		return ok
	}, time.Second, time.Millisecond)
}

func TestResolve(t *testing.T) {
	store := NewStore(newRegistry(t, map[string]rules.Loader{
		"US": (&countingLoader{table: usRules}).load,
		"ZA": (&countingLoader{table: zaRules}).load,
	}))
	ctx := context.Background()

	req, ok := store.Resolve(ctx, "US", "TH")
	require.True(t, ok)
	assert.Equal(t, rules.VisaFree, req.Type)
	assert.Equal(t, "60 days", req.MaxStay)

	req, ok = store.Resolve(ctx, "ZA", "TH")
	require.True(t, ok)
	assert.Equal(t, "30 days", req.MaxStay)

	_, ok = store.Resolve(ctx, "US", "ZZ")
	assert.False(t, ok)
	_, ok = store.Resolve(ctx, "XX", "TH")
	assert.False(t, ok)

	req, ok = store.ResolveCached("US", "JP")
	require.True(t, ok)
	assert.Equal(t, "90 days", req.MaxStay)
}

func TestSupportedAndHasNationality(t *testing.T) {
	us := &countingLoader{table: usRules}
	store := NewStore(newRegistry(t, map[string]rules.Loader{
		"US": us.load,
		"DE": (&countingLoader{table: zaRules}).load,
	}))
	assert.Equal(t, []string{"DE", "US"}, store.SupportedNationalities())
	assert.True(t, store.HasNationality("US"))
	assert.False(t, store.HasNationality("GB"))
	assert.Zero(t, us.calls.Load())
}

func TestPreloadAll_IndividualFailuresDoNotAbortOthers(t *testing.T) {
	store := NewStore(newRegistry(t, map[string]rules.Loader{
		"US": (&countingLoader{table: usRules}).load,
		"ZA": (&countingLoader{table: zaRules}).load,
		"GB": (&countingLoader{err: errors.New("missing file")}).load,
	}))
	failed := store.PreloadAll(context.Background())
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"US", "ZA"}, store.LoadedNationalities())

	store.Clear()
	assert.Empty(t, store.LoadedNationalities())
	store.Preload(context.Background(), "ZA")
	assert.Equal(t, []string{"ZA"}, store.LoadedNationalities())
}

func TestStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := NewStore(newRegistry(t, map[string]rules.Loader{
		"US": (&countingLoader{table: usRules}).load,
		"GB": (&countingLoader{err: errors.New("boom")}).load,
	}), WithMetrics(m))
	ctx := context.Background()

	store.LoadRules(ctx, "US")
	store.LoadRules(ctx, "US")
	store.LoadRules(ctx, "GB")
	store.LoadRules(ctx, "XX")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleLoads.WithLabelValues("US", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleLoads.WithLabelValues("GB", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RuleCacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleCacheLookups.WithLabelValues("unsupported")))
}
