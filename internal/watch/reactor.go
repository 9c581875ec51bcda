package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hupe1980/devwatch/internal/action"
	"github.com/hupe1980/devwatch/internal/pattern"
)

// Options configures the reactor.
type Options struct {
	// Dir is the project root that patterns are relative to.
	Dir string

	// Patterns selects the files that trigger a rebuild.
	Patterns *pattern.Set

	// Action runs on every change.
	Action action.Action

	// Profile is shown in the startup banner.
	Profile string

	// Debounce is the quiet period before a burst triggers one rebuild.
	// Zero dispatches every event.
	Debounce time.Duration

	// Concurrency limits how many rebuilds may run at once.
	Concurrency int

	// Initial runs the action once before the first change.
	Initial bool

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer

	// Now returns the time shown in status lines.
	Now func() time.Time
}

// DefaultOptions returns the default reactor options.
func DefaultOptions() Options {
	return Options{
		Dir:         ".",
		Concurrency: 1,
		Logger:      slog.Default(),
		Out:         os.Stderr,
		Now:         time.Now,
	}
}

// Reactor bridges change events to rebuild runs.
type Reactor struct {
	opts       Options
	dispatcher *Dispatcher
	outMu      sync.Mutex
}

// NewReactor validates opts and fills unset fields with defaults.
func NewReactor(opts Options) (*Reactor, error) {
	if opts.Action == nil {
		return nil, errors.New("no rebuild action configured")
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &Reactor{
		opts:       opts,
		dispatcher: NewDispatcher(opts.Concurrency),
	}, nil
}

// Run watches opts.Patterns below opts.Dir and reacts to changes until
// ctx is cancelled or a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options) error {
	if opts.Patterns == nil {
		return errors.New("no watch patterns configured")
	}

	r, err := NewReactor(opts)
	if err != nil {
		return err
	}

	w, err := NewWatcher(opts.Dir, opts.Patterns, r.opts.Logger)
	if err != nil {
		return err
	}
	defer w.Close()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r.printf("watching %s (profile=%s, action=%s, patterns=%d, ignore=%d)",
		strings.Join(w.Roots(), ", "), orNone(opts.Profile), opts.Action.Name(),
		len(opts.Patterns.Include()), len(opts.Patterns.Ignore()))

	return r.Serve(sigCtx, w)
}

// Serve consumes src until ctx is done or src closes, then waits for
// running rebuilds to finish. It never returns on its own otherwise.
func (r *Reactor) Serve(ctx context.Context, src Source) error {
	events := src.Events(ctx)

	if r.opts.Initial {
		r.dispatch(ctx, "initial")
	}

	var debouncer *Debouncer
	if r.opts.Debounce > 0 {
		debouncer = NewDebouncer(r.opts.Debounce, func(last Event, count int) {
			trigger := last.Path
			if count > 1 {
				trigger = fmt.Sprintf("%s (+%d more)", last.Path, count-1)
			}

			r.dispatch(ctx, trigger)
		})
	}

	defer r.dispatcher.Wait()

	if debouncer != nil {
		defer debouncer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			r.printf("shutting down watcher")

			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}

			r.stamp("%s %s", ev.Path, ev.Kind)

			if debouncer != nil {
				debouncer.Trigger(ev)

				continue
			}

			r.dispatch(ctx, ev.Path)
		}
	}
}

// Wait blocks until every dispatched rebuild has finished.
func (r *Reactor) Wait() {
	r.dispatcher.Wait()
}

func (r *Reactor) dispatch(ctx context.Context, trigger string) {
	r.dispatcher.Submit(func() {
		if ctx.Err() != nil {
			return
		}

		_ = r.execute(ctx, trigger)
	})
}

// Once runs the action synchronously and returns its error.
func (r *Reactor) Once(ctx context.Context, trigger string) error {
	return r.execute(ctx, trigger)
}

// execute runs the action once and reports the outcome.
func (r *Reactor) execute(ctx context.Context, trigger string) error {
	name := r.opts.Action.Name()
	r.stamp("%s started (%s)", name, trigger)

	out, err := r.opts.Action.Execute(ctx)
	if err != nil {
		r.stamp("%s ERROR: %v", name, err)

		var cmdErr *action.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Result != nil {
			r.block(cmdErr.Result.Output)
		}

		r.opts.Logger.Debug("rebuild failed",
			slog.String("action", name),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)

		return err
	}

	r.stamp("%s OK (%s)", name, out.Duration.Round(time.Millisecond))

	if out.Build != nil {
		r.block(out.Build.Output)
	}

	if out.Touched != "" {
		r.printf("  touched %s", out.Touched)
	}

	return nil
}

func (r *Reactor) stamp(format string, args ...any) {
	now := r.opts.Now().Format("15:04:05")
	r.printf("[%s] "+format, append([]any{now}, args...)...)
}

func (r *Reactor) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()

	fmt.Fprintf(r.opts.Out, format+"\n", args...)
}

// block prints captured command output indented below a status line.
func (r *Reactor) block(output string) {
	output = strings.TrimRight(output, "\n")
	if strings.TrimSpace(output) == "" {
		return
	}

	r.outMu.Lock()
	defer r.outMu.Unlock()

	for _, line := range strings.Split(output, "\n") {
		fmt.Fprintf(r.opts.Out, "  | %s\n", line)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}

	return s
}
