// Package devwatch provides a public Go API for watching a project's
// sources and rebuilding it on every change.
//
// This package exposes the devwatch reactor as a library, allowing
// programmatic use without the CLI.
//
// Basic usage:
//
//	err := devwatch.Watch(ctx, "path/to/project")
//
// With options:
//
//	err := devwatch.Watch(ctx, "path/to/project",
//	    devwatch.WithProfile("touch"),
//	    devwatch.WithIgnore("src/main/resources/generated/**"),
//	    devwatch.WithOutput(os.Stderr),
//	)
package devwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hupe1980/devwatch/internal/action"
	"github.com/hupe1980/devwatch/internal/pattern"
	"github.com/hupe1980/devwatch/internal/profile"
	"github.com/hupe1980/devwatch/internal/watch"
)

// Rebuild actions accepted by WithAction.
const (
	ActionTouch      = action.KindTouch
	ActionBuild      = action.KindBuild
	ActionBuildTouch = action.KindBuildTouch
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Option configures the watcher and its rebuild action.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	profile      string
	patterns     []string
	ignore       []string
	action       string
	target       string
	buildCommand string

	debounce    time.Duration
	concurrency int
	timeout     time.Duration
	initial     bool

	logger *slog.Logger
	out    io.Writer
}

// WithProfile selects a built-in profile. Defaults to "build".
func WithProfile(name string) Option { return func(o *options) { o.profile = name } }

// WithPatterns replaces the profile's watch globs.
func WithPatterns(patterns ...string) Option {
	return func(o *options) { o.patterns = patterns }
}

// WithIgnore adds globs that never trigger a rebuild.
func WithIgnore(patterns ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, patterns...) }
}

// WithAction overrides the profile's rebuild action.
func WithAction(kind string) Option { return func(o *options) { o.action = kind } }

// WithTarget overrides the file touched by touch actions.
func WithTarget(path string) Option { return func(o *options) { o.target = path } }

// WithBuildCommand overrides the shell command run by build actions.
func WithBuildCommand(cmd string) Option { return func(o *options) { o.buildCommand = cmd } }

// WithDebounce coalesces changes arriving within d into one rebuild.
func WithDebounce(d time.Duration) Option { return func(o *options) { o.debounce = d } }

// WithConcurrency limits how many rebuilds run at once.
func WithConcurrency(n int) Option { return func(o *options) { o.concurrency = n } }

// WithTimeout aborts build commands running longer than d.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithInitial runs the action once before the first change.
func WithInitial() Option { return func(o *options) { o.initial = true } }

// WithLogger sets the structured logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithOutput sets where status lines are written. Discarded by default.
func WithOutput(w io.Writer) Option { return func(o *options) { o.out = w } }

func (o *options) applyDefaults() {
	if o.profile == "" {
		o.profile = profile.DefaultProfile
	}

	if o.concurrency < 1 {
		o.concurrency = 1
	}

	if o.logger == nil {
		o.logger = discardLogger()
	}

	if o.out == nil {
		o.out = io.Discard
	}
}

// Watch watches dir and rebuilds on every matching change until ctx is
// cancelled.
func Watch(ctx context.Context, dir string, opts ...Option) error {
	wo, err := newOptions(dir, opts)
	if err != nil {
		return err
	}

	return watch.Run(ctx, wo)
}

// RunOnce executes the configured rebuild action a single time.
func RunOnce(ctx context.Context, dir string, opts ...Option) error {
	wo, err := newOptions(dir, opts)
	if err != nil {
		return err
	}

	r, err := watch.NewReactor(wo)
	if err != nil {
		return err
	}

	return r.Once(ctx, "manual")
}

// Matches reports whether a change to path, relative to dir, would
// trigger a rebuild.
func Matches(dir, path string, opts ...Option) (bool, error) {
	set, _, err := compile(dir, collect(opts))
	if err != nil {
		return false, err
	}

	return set.Match(pattern.Relative(dir, path)), nil
}

func collect(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	o.applyDefaults()

	return o
}

func compile(dir string, o *options) (*pattern.Set, *profile.Settings, error) {
	settings, err := profile.Resolve(o.profile, nil, profile.Overrides{
		Dir:          dir,
		Patterns:     o.patterns,
		Ignore:       o.ignore,
		Action:       o.action,
		Target:       o.target,
		BuildCommand: o.buildCommand,
	})
	if err != nil {
		return nil, nil, err
	}

	set, err := pattern.Compile(settings.Patterns, settings.Ignore)
	if err != nil {
		return nil, nil, err
	}

	return set, settings, nil
}

func newOptions(dir string, opts []Option) (watch.Options, error) {
	if dir == "" {
		return watch.Options{}, errors.New("project directory must not be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return watch.Options{}, fmt.Errorf("resolving project root %q: %w", dir, err)
	}

	o := collect(opts)

	set, settings, err := compile(abs, o)
	if err != nil {
		return watch.Options{}, err
	}

	act, err := action.New(settings.Action, action.Options{
		Dir:          abs,
		Target:       settings.Target,
		BuildCommand: settings.BuildCommand,
		Runner:       &action.ExecRunner{Dir: abs, Timeout: o.timeout},
	})
	if err != nil {
		return watch.Options{}, err
	}

	wo := watch.DefaultOptions()
	wo.Dir = abs
	wo.Patterns = set
	wo.Action = act
	wo.Profile = settings.Profile
	wo.Debounce = o.debounce
	wo.Concurrency = o.concurrency
	wo.Initial = o.initial
	wo.Logger = o.logger
	wo.Out = o.out

	return wo, nil
}
