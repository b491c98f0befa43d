package engine

// ResultState is the tagged union published by the pipeline:
// Loading, Success or Failed (optionally carrying the last known data).
// Consumers type-switch on the concrete variant.
type ResultState[T any] interface {
	resultState()
}

// Loading means a refresh cycle is in flight and nothing is known yet.
type Loading[T any] struct{}

// Success carries freshly derived data.
type Success[T any] struct {
	Data T
}

// Failed carries the error of the last cycle and, when HasStale is set,
// the last known data so consumers can keep showing something.
type Failed[T any] struct {
	Err      error
	Stale    T
	HasStale bool
}

func (Loading[T]) resultState() {}
func (Success[T]) resultState() {}
func (Failed[T]) resultState()  {}

// Displayable returns the data a consumer may show for state, if any.
func Displayable[T any](state ResultState[T]) (T, bool) {
	switch s := state.(type) {
	case Success[T]:
		return s.Data, true
	case Failed[T]:
		return s.Stale, s.HasStale
	default:
		var zero T
		return zero, false
	}
}

// DirectoryState is the state of the people list.
type DirectoryState = ResultState[[]Person]

// Snapshot is what the pipeline publishes: the state and the mode it was derived with.
type Snapshot struct {
	State DirectoryState
	Mode  SortMode
}
