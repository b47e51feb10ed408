package reconciler

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/recera/graphchart/pkg/backend"
	"github.com/recera/graphchart/pkg/render"
	"github.com/recera/graphchart/pkg/scheduler"
	"github.com/recera/graphchart/pkg/webapp"
)

// Update is one host message
type Update struct {
	Config  webapp.RawConfig
	Filters webapp.FilterSet

	// Viewport size of the chart area, used for the backend scale ratio
	Width  float64
	Height float64
}

// Fetcher retrieves graph data
type Fetcher interface {
	GetGraphData(ctx context.Context, req backend.Request) (*render.GraphData, error)
}

// Sink receives what the page should display. Methods are called on the
// reconciler's loop.
type Sink interface {
	// Loading shows the spinner
	Loading()
	// Render replaces the chart
	Render(frame render.Frame)
	// Clear hides the spinner and empties the chart area
	Clear()
	// DisplayFatalError shows msg in place of the chart
	DisplayFatalError(msg string)
}

// Options configures a Reconciler
type Options struct {
	// Descriptor returns the parameter descriptor to validate against
	Descriptor func() *webapp.Descriptor

	// Debounce is the settle time for node-cap changes (default 800ms)
	Debounce time.Duration

	// FetchTimeout bounds a backend call (0 means no extra bound)
	FetchTimeout time.Duration

	// Style is passed to the render options
	Style *render.Style

	// Name prefixes log lines
	Name string
}

// Reconciler owns the configuration state of one session. All state is
// touched only from the loop goroutine.
type Reconciler struct {
	loop    *scheduler.Loop
	fetcher Fetcher
	sink    Sink
	opts    Options

	prev        *webapp.EffectiveConfig
	prevFilters webapp.FilterSet
	seq         uint64
	pending     *scheduler.Timer
	cancel      context.CancelFunc

	fetches atomic.Uint64
}

// New creates a reconciler driven by loop
func New(loop *scheduler.Loop, fetcher Fetcher, sink Sink, opts Options) *Reconciler {
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Descriptor == nil {
		d := webapp.DefaultDescriptor()
		opts.Descriptor = func() *webapp.Descriptor { return d }
	}
	return &Reconciler{
		loop:    loop,
		fetcher: fetcher,
		sink:    sink,
		opts:    opts,
	}
}

// Submit queues a host message
func (r *Reconciler) Submit(u Update) error {
	return r.loop.Post(func() {
		r.handle(u)
	})
}

// Close drops any pending or in-flight fetch and waits for the loop to
// apply it. Don't call it from the loop.
func (r *Reconciler) Close() {
	_ = r.loop.Call(func() {
		r.seq++
		r.supersede()
	})
}

// Fetches returns the number of backend calls issued
func (r *Reconciler) Fetches() uint64 {
	return r.fetches.Load()
}

func (r *Reconciler) logf(format string, args ...interface{}) {
	log.Printf("[Reconciler %s] "+format, append([]interface{}{r.opts.Name}, args...)...)
}

func (r *Reconciler) handle(u Update) {
	desc := r.opts.Descriptor()
	if desc == nil {
		desc = webapp.DefaultDescriptor()
	}

	if err := webapp.Validate(u.Config, desc.Groups()); err != nil {
		r.logf("Rejected update: %v", err)
		r.seq++
		r.supersede()
		r.forget()
		r.sink.DisplayFatalError(err.Error())
		return
	}

	eff := webapp.Normalize(u.Config, desc.AdvancedParams)
	filters := u.Filters
	if filters == nil {
		filters = webapp.FilterSet{}
	}

	d := decide(eff, filters, r.prev, r.prevFilters, r.opts.Debounce)
	if !d.Fetch {
		r.logf("Update unchanged, skipping")
		return
	}

	r.seq++
	seq := r.seq
	r.supersede()
	r.prev = &eff
	r.prevFilters = filters

	req := backend.Request{
		Config:     eff,
		Filters:    filters,
		ScaleRatio: render.ScaleRatio(u.Width, u.Height),
	}

	// A zero delay still goes through the queue so that messages already
	// waiting behind this one can supersede it.
	r.pending = r.loop.AfterFunc(d.Delay, func() {
		if seq != r.seq {
			return
		}
		r.pending = nil
		r.fetch(seq, req)
	})
	r.logf("Scheduled fetch #%d in %v", seq, d.Delay)
}

// supersede stops the pending timer and cancels the in-flight fetch
func (r *Reconciler) supersede() {
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// forget clears the settled pair so the next valid message fetches again
func (r *Reconciler) forget() {
	r.prev = nil
	r.prevFilters = nil
}

func (r *Reconciler) fetch(seq uint64, req backend.Request) {
	var ctx context.Context
	var cancel context.CancelFunc
	if r.opts.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), r.opts.FetchTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	r.cancel = cancel
	r.fetches.Add(1)
	r.sink.Loading()

	go func() {
		data, err := r.fetcher.GetGraphData(ctx, req)
		if postErr := r.loop.Post(func() {
			r.complete(seq, req, data, err)
		}); postErr != nil {
			cancel()
		}
	}()
}

func (r *Reconciler) complete(seq uint64, req backend.Request, data *render.GraphData, err error) {
	if seq != r.seq {
		r.logf("Dropping stale response #%d (current #%d)", seq, r.seq)
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	switch {
	case err == nil && data == nil:
		err = &backend.MalformedResponseError{Err: errors.New("empty response")}
	case err == nil:
		r.logf("Rendering %d nodes, %d edges", len(data.Nodes), len(data.Edges))
		r.sink.Render(render.NewFrame(data, req.Config.DirectedEdges, r.opts.Style))
		return
	}

	r.forget()
	if backend.IsTransient(err) {
		r.logf("Backend not started yet: %v", err)
		return
	}
	r.logf("Fetch failed: %v", err)
	r.sink.Clear()
	r.sink.DisplayFatalError(err.Error())
}
