package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-addressbook/internal/engine"
)

// Reference "Now": June 15th, 2024
var pipelineNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, f engine.DirectoryFetcher, c engine.Cache) *engine.Pipeline {
	t.Helper()
	p := engine.NewPipeline(f, c, MockClock{CurrentTime: pipelineNow})
	p.MinDisplay = 0
	t.Cleanup(p.Close)
	return p
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh cycle did not finish")
	}
}

func directory() []engine.Person {
	return []engine.Person{
		person("1", "Zoe", "Adams", "1990-01-20"),
		person("2", "Adam", "Brown", "1985-06-20"),
		person("3", "Mia", "Clark", "1992-12-01"),
	}
}

func requireSuccess(t *testing.T, state engine.DirectoryState) []engine.Person {
	t.Helper()
	s, ok := state.(engine.Success[[]engine.Person])
	require.True(t, ok, "expected Success, got %T", state)
	return s.Data
}

func requireFailed(t *testing.T, state engine.DirectoryState) engine.Failed[[]engine.Person] {
	t.Helper()
	s, ok := state.(engine.Failed[[]engine.Person])
	require.True(t, ok, "expected Failed, got %T", state)
	return s
}

// -----------------------------------------------------------------------------
// Refresh
// -----------------------------------------------------------------------------

func TestPipeline_InitialState(t *testing.T) {
	p := newTestPipeline(t, new(MockFetcher), &memCache{})

	assert.IsType(t, engine.Loading[[]engine.Person]{}, p.State())
	assert.Equal(t, engine.SortNone, p.SortMode())
}

func TestPipeline_RefreshSuccess(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil)
	cache := &memCache{}
	p := newTestPipeline(t, fetcher, cache)

	wait(t, p.Refresh(context.Background()))

	assert.Equal(t, []string{"1", "2", "3"}, ids(requireSuccess(t, p.State())))
	assert.Equal(t, []string{"1", "2", "3"}, cache.ids(), "fetched records are written through")

	snap := <-p.Updates()
	assert.Equal(t, engine.SortNone, snap.Mode)
	assert.IsType(t, engine.Success[[]engine.Person]{}, snap.State, "subscriber sees only the latest state")

	cached, err := p.IsCached(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	fetcher.AssertExpectations(t)
}

func TestPipeline_RefreshUsesActiveMode(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil)
	p := newTestPipeline(t, fetcher, &memCache{})

	require.NoError(t, p.SetSortMode(engine.SortBirthday))
	wait(t, p.Refresh(context.Background()))

	// Jun 20 is upcoming, then Dec 1, then Jan 20 next year.
	assert.Equal(t, []string{"2", "3", "1"}, ids(requireSuccess(t, p.State())))
}

func TestPipeline_RefreshFailurePreservesStaleData(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil).Once()
	fetcher.On("FetchAll", mock.Anything).
		Return(nil, &engine.TransportError{Op: "GET /users", StatusCode: 503, Err: errors.New("unavailable")}).Once()
	p := newTestPipeline(t, fetcher, &memCache{})

	wait(t, p.Refresh(context.Background()))
	before := requireSuccess(t, p.State())

	wait(t, p.Refresh(context.Background()))

	failed := requireFailed(t, p.State())
	var te *engine.TransportError
	require.True(t, errors.As(failed.Err, &te))
	assert.Equal(t, 503, te.StatusCode)
	assert.True(t, failed.HasStale)
	assert.Equal(t, before, failed.Stale)

	data, ok := engine.Displayable[[]engine.Person](p.State())
	assert.True(t, ok)
	assert.Len(t, data, 3)
	fetcher.AssertExpectations(t)
}

func TestPipeline_FirstRunFailureHasNoStaleData(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(nil, errors.New("dns failure"))
	p := newTestPipeline(t, fetcher, &memCache{})

	wait(t, p.Refresh(context.Background()))

	failed := requireFailed(t, p.State())
	var te *engine.TransportError
	assert.True(t, errors.As(failed.Err, &te), "foreign fetch errors are wrapped as TransportError")
	assert.False(t, failed.HasStale)
	assert.Empty(t, failed.Stale)

	cached, err := p.IsCached(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestPipeline_FailureFallsBackToLastDatasetWhenCacheUnreadable(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil).Once()
	fetcher.On("FetchAll", mock.Anything).Return(nil, errors.New("offline")).Once()
	cache := &memCache{}
	p := newTestPipeline(t, fetcher, cache)

	wait(t, p.Refresh(context.Background()))
	cache.mu.Lock()
	cache.failRead = errors.New("disk gone")
	cache.mu.Unlock()

	wait(t, p.Refresh(context.Background()))

	failed := requireFailed(t, p.State())
	assert.True(t, failed.HasStale)
	assert.Equal(t, []string{"1", "2", "3"}, ids(failed.Stale))
}

func TestPipeline_ParseErrorFailsCycle(t *testing.T) {
	people := append(directory(), person("4", "Bad", "Date", "1990/01/01"))
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(people, nil)
	p := newTestPipeline(t, fetcher, &memCache{})

	require.NoError(t, p.SetSortMode(engine.SortBirthday))
	wait(t, p.Refresh(context.Background()))

	failed := requireFailed(t, p.State())
	var pe *engine.ParseError
	require.True(t, errors.As(failed.Err, &pe))
	assert.Equal(t, "1990/01/01", pe.Value)
	assert.True(t, failed.HasStale)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(failed.Stale), "cached data is kept in cache order")

	// Ordering modes that ignore dates recover.
	require.NoError(t, p.SetSortMode(engine.SortAlphabetical))
	assert.Len(t, requireSuccess(t, p.State()), 4)
}

// -----------------------------------------------------------------------------
// Cancellation
// -----------------------------------------------------------------------------

func TestPipeline_LastRequestWins(t *testing.T) {
	first := []engine.Person{person("old", "Old", "Data", "1990-01-01")}
	second := directory()

	started := make(chan struct{})
	release := make(chan struct{})

	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release // ignores cancellation, like a slow transport
		}).
		Return(first, nil).Once()
	fetcher.On("FetchAll", mock.Anything).Return(second, nil).Once()

	cache := &memCache{}
	p := newTestPipeline(t, fetcher, cache)

	done1 := p.Refresh(context.Background())
	<-started
	done2 := p.Refresh(context.Background())
	wait(t, done2)

	assert.Equal(t, []string{"1", "2", "3"}, ids(requireSuccess(t, p.State())))

	close(release)
	wait(t, done1)

	assert.Equal(t, []string{"1", "2", "3"}, ids(requireSuccess(t, p.State())), "superseded result must be discarded")
	assert.NotContains(t, cache.ids(), "old", "superseded cycle must not write to the cache")
	fetcher.AssertExpectations(t)
}

func TestPipeline_SortChangeDuringLoadingAppliesAtCommit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(directory(), nil).Once()

	p := newTestPipeline(t, fetcher, &memCache{})

	done := p.Refresh(context.Background())
	<-started

	require.NoError(t, p.SetSortMode(engine.SortAlphabetical))
	assert.IsType(t, engine.Loading[[]engine.Person]{}, p.State(), "no re-derivation while loading")

	close(release)
	wait(t, done)

	assert.Equal(t, []string{"2", "3", "1"}, ids(requireSuccess(t, p.State())))
}

func TestPipeline_CallerCancellationDiscards(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()
	cache := &memCache{}
	p := newTestPipeline(t, fetcher, cache)

	ctx, cancel := context.WithCancel(context.Background())
	done := p.Refresh(ctx)
	cancel()
	wait(t, done)

	assert.IsType(t, engine.Loading[[]engine.Person]{}, p.State())
	assert.Empty(t, cache.ids())
}

func TestPipeline_CloseWaitsForCycle(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()

	p := engine.NewPipeline(fetcher, &memCache{}, MockClock{CurrentTime: pipelineNow})
	done := p.Refresh(context.Background())

	p.Close()

	select {
	case <-done:
	default:
		t.Fatal("Close returned before the cycle ended")
	}

	// Drain the Loading snapshot; the channel must then be closed.
	for range p.Updates() {
	}

	wait(t, p.Refresh(context.Background()))
	assert.Error(t, p.SetSortMode(engine.SortBirthday))
}

// -----------------------------------------------------------------------------
// Sort mode
// -----------------------------------------------------------------------------

func TestPipeline_SetSortModeIsFetchFree(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil)
	p := newTestPipeline(t, fetcher, &memCache{})

	wait(t, p.Refresh(context.Background()))

	require.NoError(t, p.SetSortMode(engine.SortAlphabetical))
	assert.Equal(t, []string{"2", "3", "1"}, ids(requireSuccess(t, p.State())))

	require.NoError(t, p.SetSortMode(engine.SortBirthday))
	assert.Equal(t, []string{"2", "3", "1"}, ids(requireSuccess(t, p.State())))

	require.NoError(t, p.SetSortMode(engine.SortNone))
	assert.Equal(t, []string{"1", "2", "3"}, ids(requireSuccess(t, p.State())))

	snap := <-p.Updates()
	assert.Equal(t, engine.SortNone, snap.Mode)

	fetcher.AssertNumberOfCalls(t, "FetchAll", 1)
}

func TestPipeline_SetSortModeUnchangedIsNoop(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil)
	p := newTestPipeline(t, fetcher, &memCache{})
	wait(t, p.Refresh(context.Background()))
	<-p.Updates()

	require.NoError(t, p.SetSortMode(engine.SortNone))

	select {
	case snap := <-p.Updates():
		t.Fatalf("unexpected publication: %+v", snap)
	default:
	}
}

func TestPipeline_SetSortModeRejectsUnknown(t *testing.T) {
	p := newTestPipeline(t, new(MockFetcher), &memCache{})

	assert.Error(t, p.SetSortMode(engine.SortMode("shuffle")))
	assert.Equal(t, engine.SortNone, p.SortMode())
}

func TestPipeline_SetSortModeResortsStaleData(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil).Once()
	fetcher.On("FetchAll", mock.Anything).Return(nil, errors.New("offline")).Once()
	p := newTestPipeline(t, fetcher, &memCache{})

	wait(t, p.Refresh(context.Background()))
	wait(t, p.Refresh(context.Background()))

	require.NoError(t, p.SetSortMode(engine.SortAlphabetical))

	failed := requireFailed(t, p.State())
	assert.Equal(t, []string{"2", "3", "1"}, ids(failed.Stale))
}

// -----------------------------------------------------------------------------
// Edit, Delete, GetByID
// -----------------------------------------------------------------------------

func TestPipeline_EditIsObservedByGetByID(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil)
	p := newTestPipeline(t, fetcher, &memCache{})
	wait(t, p.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := p.GetByID(ctx, "2")

	initial := <-stream
	require.True(t, initial.Found)
	assert.Equal(t, "Adam", initial.Person.FirstName)

	edited := initial.Person
	edited.FirstName = "Aaron"
	require.NoError(t, p.Edit(context.Background(), edited))

	updated := <-stream
	require.True(t, updated.Found)
	assert.Equal(t, "Aaron", updated.Person.FirstName)

	list := requireSuccess(t, p.State())
	assert.Equal(t, "Aaron", list[1].FirstName, "edit keeps the cache position")
	fetcher.AssertNumberOfCalls(t, "FetchAll", 1)
}

func TestPipeline_GetByIDUnknown(t *testing.T) {
	p := newTestPipeline(t, new(MockFetcher), &memCache{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := <-p.GetByID(ctx, "missing")
	assert.False(t, got.Found)
}

func TestPipeline_EditRejectsInvalidRecord(t *testing.T) {
	cache := &memCache{}
	p := newTestPipeline(t, new(MockFetcher), cache)

	tests := []struct {
		name   string
		person engine.Person
	}{
		{"MissingID", engine.Person{FirstName: "A", Birthday: "1990-01-01"}},
		{"MissingFirstName", engine.Person{ID: "1", Birthday: "1990-01-01"}},
		{"BadBirthday", engine.Person{ID: "1", FirstName: "A", Birthday: "01.01.1990"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, p.Edit(context.Background(), tt.person))
		})
	}
	assert.Empty(t, cache.ids())
}

func TestPipeline_EditWithoutRefreshPublishes(t *testing.T) {
	p := newTestPipeline(t, new(MockFetcher), &memCache{})

	require.NoError(t, p.Edit(context.Background(), person("9", "Nina", "Novak", "1991-09-09")))

	assert.Equal(t, []string{"9"}, ids(requireSuccess(t, p.State())))
}

func TestPipeline_Delete(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchAll", mock.Anything).Return(directory(), nil)
	p := newTestPipeline(t, fetcher, &memCache{})
	wait(t, p.Refresh(context.Background()))

	require.NoError(t, p.Delete(context.Background(), "2"))

	assert.Equal(t, []string{"1", "3"}, ids(requireSuccess(t, p.State())))
}
