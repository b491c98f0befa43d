package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tartampluch/go-addressbook/internal/config"
)

// Lookup is one emission of a by-id subscription.
type Lookup struct {
	Person Person
	Found  bool
}

// Cache is the local store the pipeline writes through.
// Implementations must be safe for concurrent use.
type Cache interface {
	UpsertAll(ctx context.Context, people []Person) error
	Upsert(ctx context.Context, p Person) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) ([]Person, error)
	IsPopulated(ctx context.Context) (bool, error)
	WatchByID(ctx context.Context, id string) <-chan Lookup
}

// Pipeline runs refresh cycles (fetch, cache, sort, publish) and owns the published state.
// At most one cycle is in flight: starting a new one cancels the previous.
type Pipeline struct {
	Fetcher DirectoryFetcher
	Cache   Cache
	Clock   Clock

	// MinDisplay keeps Loading visible for at least this long after a cycle starts.
	MinDisplay time.Duration

	mu      sync.Mutex
	mode    SortMode
	dataset []Person // last dataset read back from the cache
	failure error    // transport error of the last cycle, nil after a success
	state   DirectoryState
	gen     uint64
	running bool // a cycle of generation gen is in flight
	cancel  context.CancelFunc
	closed  bool

	updates chan Snapshot
	wg      sync.WaitGroup
}

// NewPipeline creates a pipeline in the Loading state with SortNone active.
func NewPipeline(fetcher DirectoryFetcher, cache Cache, clock Clock) *Pipeline {
	return &Pipeline{
		Fetcher:    fetcher,
		Cache:      cache,
		Clock:      clock,
		MinDisplay: config.DefaultMinDisplay,
		mode:       SortNone,
		state:      Loading[[]Person]{},
		updates:    make(chan Snapshot, config.ChannelBufferSize),
	}
}

// Updates streams published snapshots. The channel holds only the latest one:
// a slow reader skips intermediate states. It is closed by Close.
func (p *Pipeline) Updates() <-chan Snapshot {
	return p.updates
}

// State returns the currently published state.
func (p *Pipeline) State() DirectoryState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SortMode returns the active sort mode.
func (p *Pipeline) SortMode() SortMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Refresh starts a new cycle, cancelling the one in flight.
// The returned channel is closed once the cycle has published or been discarded.
func (p *Pipeline) Refresh(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(done)
		return done
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	cycleCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.publishLocked(Loading[[]Person]{})
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer close(done)
		defer cancel()
		defer p.finish(gen)
		p.runCycle(cycleCtx, gen)
	}()
	return done
}

func (p *Pipeline) runCycle(ctx context.Context, gen uint64) {
	start := time.Now()
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompEngine),
		slog.Uint64(config.LogKeyGen, gen),
	)
	log.InfoContext(ctx, config.MsgRefreshStarted)

	people, fetchErr := p.Fetcher.FetchAll(ctx)
	if ctx.Err() != nil {
		p.discarded(log)
		return
	}

	var (
		dataset []Person
		failure error
	)
	if fetchErr != nil {
		var te *TransportError
		if !errors.As(fetchErr, &te) {
			te = &TransportError{Op: config.ErrFetch, Err: fetchErr}
		}
		failure = te

		stale, err := p.Cache.All(ctx)
		if err != nil {
			log.Warn(config.ErrCacheRead, slog.Any(config.LogKeyError, err))
			stale = p.lastDataset()
		}
		dataset = stale
	} else {
		if err := p.Cache.UpsertAll(ctx, people); err != nil {
			if ctx.Err() != nil {
				p.discarded(log)
				return
			}
			log.Error(config.ErrCacheWrite, slog.Any(config.LogKeyError, err))
			failure = fmt.Errorf("%s: %w", config.ErrCacheWrite, err)
		}
		cached, err := p.Cache.All(ctx)
		if err != nil {
			log.Error(config.ErrCacheRead, slog.Any(config.LogKeyError, err))
			cached = people
		}
		dataset = cached
	}

	if wait := p.MinDisplay - time.Since(start); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.discarded(log)
			return
		case <-timer.C:
		}
	}

	state, ok := p.commit(ctx, gen, dataset, failure)
	if !ok {
		p.discarded(log)
		return
	}

	refreshDuration.Observe(time.Since(start).Seconds())
	switch s := state.(type) {
	case Success[[]Person]:
		refreshTotal.WithLabelValues(config.ResultSuccess).Inc()
		peopleCached.Set(float64(len(s.Data)))
		log.Info(config.MsgRefreshSuccess,
			slog.Int(config.LogKeyCount, len(s.Data)),
			slog.Int64(config.LogKeyDuration, time.Since(start).Milliseconds()))
	case Failed[[]Person]:
		refreshTotal.WithLabelValues(config.ResultFailed).Inc()
		log.Warn(config.MsgRefreshFailed,
			slog.Any(config.LogKeyError, s.Err),
			slog.Bool(config.LogKeyStale, s.HasStale))
	}
}

func (p *Pipeline) discarded(log *slog.Logger) {
	refreshTotal.WithLabelValues(config.ResultDiscarded).Inc()
	log.Debug(config.MsgRefreshDiscarded)
}

// finish clears the in-flight marker unless a newer cycle already owns it.
func (p *Pipeline) finish(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.gen {
		p.running = false
	}
}

func (p *Pipeline) lastDataset() []Person {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dataset
}

// commit publishes the outcome of cycle gen unless a newer cycle superseded it.
// Sorting happens here, under the lock, so the mode read is the one current at publish time.
func (p *Pipeline) commit(ctx context.Context, gen uint64, dataset []Person, failure error) (DirectoryState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil || gen != p.gen || p.closed {
		return nil, false
	}
	p.dataset = dataset
	p.failure = failure
	state := p.deriveLocked()
	p.publishLocked(state)
	return state, true
}

// deriveLocked sorts the last dataset under the active mode.
func (p *Pipeline) deriveLocked() DirectoryState {
	sorted, err := SortPeople(p.dataset, p.mode, Today(p.Clock))

	if p.failure != nil {
		if err != nil {
			sorted = slices.Clone(p.dataset)
		}
		return Failed[[]Person]{Err: p.failure, Stale: sorted, HasStale: len(p.dataset) > 0}
	}

	if err != nil {
		slog.Error(config.MsgSortFailed,
			config.LogKeyComponent, config.CompEngine,
			config.LogKeyError, err)
		return Failed[[]Person]{Err: err, Stale: slices.Clone(p.dataset), HasStale: len(p.dataset) > 0}
	}
	return Success[[]Person]{Data: sorted}
}

// publishLocked stores state and offers it to the subscriber, replacing any unread snapshot.
func (p *Pipeline) publishLocked(state DirectoryState) {
	p.state = state
	if p.closed {
		return
	}

	select {
	case <-p.updates:
	default:
	}
	p.updates <- Snapshot{State: state, Mode: p.mode}
}

// rederiveLocked republishes the last dataset unless a cycle is still loading,
// in which case that cycle picks the new inputs up when it commits.
func (p *Pipeline) rederiveLocked() {
	if p.running {
		return
	}
	p.publishLocked(p.deriveLocked())
}

// SetSortMode switches the active mode and re-sorts the last dataset. It never fetches.
func (p *Pipeline) SetSortMode(mode SortMode) error {
	if !slices.Contains(SortModes, mode) {
		return fmt.Errorf("%s: %q", config.ErrSortUnsupport, mode)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New(config.ErrPipelineClosed)
	}
	if mode == p.mode {
		return nil
	}
	p.mode = mode
	slog.Info(config.MsgSortChanged,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeySort, string(mode))
	p.rederiveLocked()
	return nil
}

// GetByID streams the cached record for id, re-emitting on every cache change.
// The stream ends when ctx is cancelled.
func (p *Pipeline) GetByID(ctx context.Context, id string) <-chan Lookup {
	return p.Cache.WatchByID(ctx, id)
}

// Edit validates person and writes it through to the cache, then re-derives the list.
func (p *Pipeline) Edit(ctx context.Context, person Person) error {
	if err := ValidatePerson(person); err != nil {
		return err
	}
	if err := p.Cache.Upsert(ctx, person); err != nil {
		return err
	}
	slog.Info(config.MsgPersonEdited,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyID, person.ID)
	return p.reload(ctx)
}

// Delete removes the record from the cache, then re-derives the list.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	if err := p.Cache.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info(config.MsgPersonDeleted,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyID, id)
	return p.reload(ctx)
}

func (p *Pipeline) reload(ctx context.Context) error {
	people, err := p.Cache.All(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New(config.ErrPipelineClosed)
	}
	p.dataset = people
	p.rederiveLocked()
	return nil
}

// IsCached reports whether the cache holds data, i.e. whether stale content can be shown.
func (p *Pipeline) IsCached(ctx context.Context) (bool, error) {
	return p.Cache.IsPopulated(ctx)
}

// Close cancels the in-flight cycle, waits for it and closes the Updates channel.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()
	close(p.updates)
}
