package engine

// Result is the outcome of a soft-failable fetch: a value, a confirmed
// absence, or (for metadata) a hard block that dooms the request.
type Result[T any] struct {
	value T
	state resultState
	err   error
}

type resultState int

const (
	stateUnavailable resultState = iota
	stateOK
	stateBlocked
)

// Ok wraps a fetched value.
func Ok[T any](v T) Result[T] { return Result[T]{value: v, state: stateOK} }

// Unavailable records that the source was asked and had nothing.
// err is the reason, kept for logging.
func Unavailable[T any](err error) Result[T] { return Result[T]{state: stateUnavailable, err: err} }

// Blocked records an upstream condition under which the video can never be processed.
func Blocked[T any](err error) Result[T] { return Result[T]{state: stateBlocked, err: err} }

// Get returns the value and whether one is present.
func (r Result[T]) Get() (T, bool) { return r.value, r.state == stateOK }

// IsBlocked reports a hard upstream block.
func (r Result[T]) IsBlocked() bool { return r.state == stateBlocked }

// Err returns the reason for an absent value, or nil.
func (r Result[T]) Err() error { return r.err }
