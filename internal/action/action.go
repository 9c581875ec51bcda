// Package action implements the rebuild actions devwatch runs when a
// watched file changes: touching a reload target, running a build command,
// or running the build and touching the target only when it succeeds.
package action

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// Supported action kinds.
const (
	KindTouch      = "touch"
	KindBuild      = "build"
	KindBuildTouch = "build-touch"
)

// Kinds lists every supported action kind.
func Kinds() []string {
	return []string{KindTouch, KindBuild, KindBuildTouch}
}

// Outcome summarises a successful action run.
type Outcome struct {
	// Build is the build command result, nil when no build ran.
	Build *Result

	// Touched is the file that was touched, empty when none was.
	Touched string

	Duration time.Duration
}

// Action is a rebuild step triggered by a file change.
type Action interface {
	Name() string
	Execute(ctx context.Context) (*Outcome, error)
}

// Options configures New.
type Options struct {
	// Dir is the project root. Relative targets resolve against it and
	// build commands run in it.
	Dir string

	// Target is the file touched by touch and build-touch.
	Target string

	// BuildCommand is the shell command line run by build and build-touch.
	BuildCommand string

	// Runner executes build commands. Nil selects an ExecRunner in Dir.
	Runner Runner
}

// New creates the action of the given kind.
func New(kind string, opts Options) (Action, error) {
	if opts.Runner == nil {
		opts.Runner = &ExecRunner{Dir: opts.Dir}
	}

	target := opts.Target
	if target != "" && !filepath.IsAbs(target) && opts.Dir != "" {
		target = filepath.Join(opts.Dir, target)
	}

	switch kind {
	case KindTouch:
		if target == "" {
			return nil, fmt.Errorf("action %q requires a target file", kind)
		}

		return &TouchAction{Target: target}, nil
	case KindBuild:
		if opts.BuildCommand == "" {
			return nil, fmt.Errorf("action %q requires a build command", kind)
		}

		return &BuildAction{Command: opts.BuildCommand, Runner: opts.Runner}, nil
	case KindBuildTouch:
		if target == "" {
			return nil, fmt.Errorf("action %q requires a target file", kind)
		}

		if opts.BuildCommand == "" {
			return nil, fmt.Errorf("action %q requires a build command", kind)
		}

		return &BuildThenTouchAction{
			Build: BuildAction{Command: opts.BuildCommand, Runner: opts.Runner},
			Touch: TouchAction{Target: target},
		}, nil
	default:
		return nil, fmt.Errorf("unknown action %q (must be one of touch, build, build-touch)", kind)
	}
}

// TouchAction touches Target so that a tool watching it reloads.
type TouchAction struct {
	Target string
}

// Name implements Action.
func (a *TouchAction) Name() string { return KindTouch }

// Execute implements Action.
func (a *TouchAction) Execute(_ context.Context) (*Outcome, error) {
	start := time.Now()

	if err := Touch(a.Target); err != nil {
		return nil, err
	}

	return &Outcome{Touched: a.Target, Duration: time.Since(start)}, nil
}

// BuildAction runs Command and captures its output.
type BuildAction struct {
	Command string
	Runner  Runner
}

// Name implements Action.
func (a *BuildAction) Name() string { return KindBuild }

// Execute implements Action.
func (a *BuildAction) Execute(ctx context.Context) (*Outcome, error) {
	start := time.Now()

	res, err := a.Runner.Run(ctx, a.Command)
	if err != nil {
		return nil, err
	}

	return &Outcome{Build: res, Duration: time.Since(start)}, nil
}

// BuildThenTouchAction runs the build and touches the target only when
// the build succeeded.
type BuildThenTouchAction struct {
	Build BuildAction
	Touch TouchAction
}

// Name implements Action.
func (a *BuildThenTouchAction) Name() string { return KindBuildTouch }

// Execute implements Action.
func (a *BuildThenTouchAction) Execute(ctx context.Context) (*Outcome, error) {
	start := time.Now()

	built, err := a.Build.Execute(ctx)
	if err != nil {
		return nil, err
	}

	if err := Touch(a.Touch.Target); err != nil {
		return nil, fmt.Errorf("build succeeded but %w", err)
	}

	return &Outcome{Build: built.Build, Touched: a.Touch.Target, Duration: time.Since(start)}, nil
}
