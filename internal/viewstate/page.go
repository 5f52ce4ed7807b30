package viewstate

import (
	"context"
	"sort"
	"sync"
	"time"
)

// View is a State with its result type erased, for serving pages of different result types
// through one router.
type View struct {
	Page      string      `json:"page"`
	Status    Status      `json:"status"`
	Query     string      `json:"query,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	Seq       uint64      `json:"seq"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (s State[T]) View() View {
	v := View{
		Page:      s.Page,
		Status:    s.Status,
		Query:     s.Query,
		Error:     s.Error,
		Seq:       s.Seq,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Result != nil {
		v.Result = s.Result
	}
	return v
}

// Page is a Controller of any result type.
type Page interface {
	Name() string
	Current() View
	SubmitView(ctx context.Context, input string) (View, error)
	ResetView() View
}

func (c *Controller[T]) Current() View {
	return c.State().View()
}

func (c *Controller[T]) SubmitView(ctx context.Context, input string) (View, error) {
	s, err := c.Submit(ctx, input)
	return s.View(), err
}

func (c *Controller[T]) ResetView() View {
	return c.Reset().View()
}

// Registry holds the pages of the application by name.
type Registry struct {
	mu    sync.RWMutex
	pages map[string]Page
}

func NewRegistry(pages ...Page) *Registry {
	r := &Registry{pages: make(map[string]Page, len(pages))}
	for _, p := range pages {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any page with the same name.
func (r *Registry) Register(p Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[p.Name()] = p
}

func (r *Registry) Get(name string) (Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[name]
	return p, ok
}

// Names returns the registered page names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pages))
	for n := range r.pages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
