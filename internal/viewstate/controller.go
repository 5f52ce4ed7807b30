// Package viewstate holds the state of one lookup page: what was asked, whether it is loading,
// and the result or error to show.
package viewstate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-lookup/internal/repository"
	"go.uber.org/zap"
)

type Status string

const (
	Idle    Status = "idle"
	Loading Status = "loading"
	Success Status = "success"
	Failed  Status = "failed"
)

// Messages shown for failed or rejected submissions.
const (
	MsgEmptyInput         = "Please enter a city"
	MsgInvalidCoordinates = "Please enter coordinates as lat,lon"
	MsgNotFound           = "City not found"
	MsgUnreachable        = "Unable to reach the weather service"
	MsgUnexpected         = "An unexpected error occurred"
)

// ErrSuperseded is returned by Submit when a newer submission or a reset happened while the
// fetch was in flight. Its result was discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

// ValidationError rejects input before any request is made.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Err }

// RequestError is a failed fetch as shown to the user.
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }
func (e *RequestError) Unwrap() error { return e.Err }

// NewRequestError classifies err into the message the page shows.
func NewRequestError(err error) *RequestError {
	switch {
	case errors.Is(err, repository.ErrLocationNotFound):
		return &RequestError{Message: MsgNotFound, Err: err}
	case errors.Is(err, repository.ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return &RequestError{Message: MsgUnreachable, Err: err}
	default:
		return &RequestError{Message: MsgUnexpected, Err: err}
	}
}

// State is a copy of a page's view state. Result is nil unless Status is Success, or Loading
// after an earlier success. Result is shared between copies and must not be modified.
type State[T any] struct {
	Page      string    `json:"page"`
	Status    Status    `json:"status"`
	Query     string    `json:"query,omitempty"`
	Result    *T        `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FetchFunc performs the lookup for a validated query.
type FetchFunc[T any] func(ctx context.Context, query string) (*T, error)

// ParseFunc normalizes trimmed, non-empty input into a query, or rejects it.
type ParseFunc func(input string) (string, error)

type options struct {
	parse  ParseFunc
	now    func() time.Time
	logger *zap.SugaredLogger
}

type Option func(*options)

// WithParser validates input beyond non-emptiness. A parser error becomes a ValidationError.
func WithParser(p ParseFunc) Option {
	return func(o *options) { o.parse = p }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// Controller drives one page through Idle, Loading, Success and Failed. Fetches run outside the
// lock; each submission takes a sequence number and only the latest one may land.
type Controller[T any] struct {
	page  string
	fetch FetchFunc[T]
	opts  options

	mu    sync.Mutex
	seq   uint64
	state State[T]
}

func New[T any](page string, fetch FetchFunc[T], opts ...Option) *Controller[T] {
	o := options{now: time.Now, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller[T]{
		page:  page,
		fetch: fetch,
		opts:  o,
		state: State[T]{Page: page, Status: Idle, UpdatedAt: o.now()},
	}
}

func (c *Controller[T]) Name() string {
	return c.page
}

// State returns a copy of the current view state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit validates input and, if it is acceptable, runs the fetch and records its outcome.
// It returns the state after the submission together with a *ValidationError, a *RequestError
// or ErrSuperseded.
func (c *Controller[T]) Submit(ctx context.Context, input string) (State[T], error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return c.State(), &ValidationError{Message: MsgEmptyInput}
	}
	if c.opts.parse != nil {
		q, err := c.opts.parse(query)
		if err != nil {
			return c.State(), &ValidationError{Message: MsgInvalidCoordinates, Err: err}
		}
		query = q
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state.Status = Loading
	c.state.Query = query
	c.state.Error = ""
	c.state.Seq = seq
	c.state.UpdatedAt = c.opts.now()
	c.mu.Unlock()

	c.opts.logger.Debugw("Page loading", "page", c.page, "query", query, "seq", seq)
	result, err := c.fetch(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.opts.logger.Debugw("Discarding stale completion", "page", c.page, "seq", seq, "latest", c.seq)
		return c.state, ErrSuperseded
	}

	c.state.UpdatedAt = c.opts.now()
	if err != nil {
		reqErr := NewRequestError(err)
		c.state.Status = Failed
		c.state.Result = nil
		c.state.Error = reqErr.Message
		c.opts.logger.Infow("Page lookup failed", "page", c.page, "query", query, "error", err)
		return c.state, reqErr
	}

	c.state.Status = Success
	c.state.Result = result
	c.state.Error = ""
	return c.state, nil
}

// Reset returns the page to Idle. A fetch still in flight is discarded when it completes.
func (c *Controller[T]) Reset() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.state = State[T]{Page: c.page, Status: Idle, Seq: c.seq, UpdatedAt: c.opts.now()}
	return c.state
}
