package engine_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tartampluch/go-addressbook/internal/engine"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockFetcher simulates the directory service using `testify/mock`.
type MockFetcher struct {
	mock.Mock
}

// FetchAll implements the engine.DirectoryFetcher interface.
func (m *MockFetcher) FetchAll(ctx context.Context) ([]engine.Person, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]engine.Person), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

// memCache is an in-memory engine.Cache keeping insertion order.
type memCache struct {
	mu       sync.Mutex
	people   []engine.Person
	watchers []chan struct{}
	failRead error
}

func (c *memCache) UpsertAll(_ context.Context, people []engine.Person) error {
	c.mu.Lock()
	for _, p := range people {
		c.upsertLocked(p)
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *memCache) Upsert(_ context.Context, p engine.Person) error {
	c.mu.Lock()
	c.upsertLocked(p)
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *memCache) upsertLocked(p engine.Person) {
	i := slices.IndexFunc(c.people, func(x engine.Person) bool { return x.ID == p.ID })
	if i >= 0 {
		c.people[i] = p
		return
	}
	c.people = append(c.people, p)
}

func (c *memCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	c.people = slices.DeleteFunc(c.people, func(x engine.Person) bool { return x.ID == id })
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *memCache) All(context.Context) ([]engine.Person, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failRead != nil {
		return nil, c.failRead
	}
	return slices.Clone(c.people), nil
}

func (c *memCache) IsPopulated(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.people) > 0, nil
}

func (c *memCache) byID(id string) engine.Lookup {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.people {
		if p.ID == id {
			return engine.Lookup{Person: p, Found: true}
		}
	}
	return engine.Lookup{}
}

func (c *memCache) WatchByID(ctx context.Context, id string) <-chan engine.Lookup {
	changed := make(chan struct{}, 1)
	c.mu.Lock()
	c.watchers = append(c.watchers, changed)
	c.mu.Unlock()

	out := make(chan engine.Lookup)
	go func() {
		defer close(out)
		for {
			select {
			case out <- c.byID(id):
			case <-ctx.Done():
				return
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (c *memCache) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

func (c *memCache) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.people))
	for _, p := range c.people {
		ids = append(ids, p.ID)
	}
	return ids
}

// person builds a valid record; only the fields the tests look at vary.
func person(id, first, last, birthday string) engine.Person {
	return engine.Person{
		ID:         id,
		FirstName:  first,
		LastName:   last,
		UserTag:    strings.ToLower(first + last),
		Department: engine.DeptAndroid,
		Birthday:   birthday,
	}
}

func ids(people []engine.Person) []string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		out = append(out, p.ID)
	}
	return out
}
