// Package profile holds the named watch presets selectable via --profile
// and resolves them, together with explicit overrides, into the settings
// the reactor runs with.
package profile

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hupe1980/devwatch/internal/action"
	"github.com/hupe1980/devwatch/internal/pattern"
)

// Defaults shared by the built-in profiles.
const (
	DefaultTarget       = "src/main/java/com/example/App.java"
	DefaultBuildCommand = "mvn compile"
	DefaultProfile      = "build"
)

// Profile is a reusable watch preset. Empty fields inherit from Extends
// (custom profiles only) or from the overrides passed to Resolve.
type Profile struct {
	Description  string   `mapstructure:"description" yaml:"description,omitempty"`
	Patterns     []string `mapstructure:"patterns" yaml:"patterns,omitempty"`
	Ignore       []string `mapstructure:"ignore" yaml:"ignore,omitempty"`
	Action       string   `mapstructure:"action" yaml:"action,omitempty"`
	Target       string   `mapstructure:"target" yaml:"target,omitempty"`
	BuildCommand string   `mapstructure:"build-command" yaml:"build-command,omitempty"`
	Extends      string   `mapstructure:"extends" yaml:"extends,omitempty"`
}

var sourcePatterns = []string{
	"src/main/resources/fxml/**/*.fxml",
	"src/main/resources/styles/**/*.css",
	"src/main/java/**/*.java",
}

var builtinProfiles = map[string]Profile{
	"touch": {
		Description:  "touch the target when FXML or CSS resources change",
		Patterns:     []string{"src/main/resources/**/*.{fxml,css}"},
		Action:       action.KindTouch,
		Target:       DefaultTarget,
		BuildCommand: DefaultBuildCommand,
	},
	"touch-sources": {
		Description:  "touch the target when resources or Java sources change",
		Patterns:     sourcePatterns,
		Action:       action.KindTouch,
		Target:       DefaultTarget,
		BuildCommand: DefaultBuildCommand,
	},
	"build-touch": {
		Description:  "compile, then touch the target if the build succeeded",
		Patterns:     sourcePatterns,
		Action:       action.KindBuildTouch,
		Target:       DefaultTarget,
		BuildCommand: DefaultBuildCommand,
	},
	"build": {
		Description:  "compile on every resource or source change",
		Patterns:     sourcePatterns,
		Action:       action.KindBuild,
		Target:       DefaultTarget,
		BuildCommand: DefaultBuildCommand,
	},
}

// BuiltinNames returns the built-in profile names, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Builtin returns a copy of the named built-in profile.
func Builtin(name string) (Profile, bool) {
	p, ok := builtinProfiles[name]
	if !ok {
		return Profile{}, false
	}

	return p.clone(), true
}

// Lookup resolves name against the built-ins first, then custom. A custom
// profile may extend a built-in; its non-empty fields win.
func Lookup(name string, custom map[string]Profile) (Profile, error) {
	if p, ok := Builtin(name); ok {
		return p, nil
	}

	p, ok := custom[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (built-in: %v)", name, BuiltinNames())
	}

	if p.Extends == "" {
		return p.clone(), nil
	}

	base, ok := Builtin(p.Extends)
	if !ok {
		return Profile{}, fmt.Errorf("profile %q extends unknown profile %q", name, p.Extends)
	}

	return merge(base, p), nil
}

// Overrides are explicit settings that take precedence over a profile.
type Overrides struct {
	// Dir is the project root. An absolute target inside it is rewritten
	// relative to it.
	Dir string

	Patterns     []string
	Ignore       []string
	Action       string
	Target       string
	BuildCommand string
}

// Settings is the fully resolved watch configuration.
type Settings struct {
	Profile      string
	Patterns     []string
	Ignore       []string
	Action       string
	Target       string
	BuildCommand string
}

// Resolve applies overrides on top of the named profile. Ignore patterns
// accumulate. When the action touches a file, that file is ignored so the
// touch cannot re-trigger the watcher.
func Resolve(name string, custom map[string]Profile, o Overrides) (*Settings, error) {
	if name == "" {
		name = DefaultProfile
	}

	p, err := Lookup(name, custom)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Profile:      name,
		Patterns:     p.Patterns,
		Ignore:       append([]string(nil), p.Ignore...),
		Action:       p.Action,
		Target:       p.Target,
		BuildCommand: p.BuildCommand,
	}

	if len(o.Patterns) > 0 {
		s.Patterns = append([]string(nil), o.Patterns...)
	}

	s.Ignore = append(s.Ignore, o.Ignore...)

	if o.Action != "" {
		s.Action = o.Action
	}

	if o.Target != "" {
		s.Target = o.Target
	}

	if o.BuildCommand != "" {
		s.BuildCommand = o.BuildCommand
	}

	if s.Action == "" {
		s.Action = action.KindBuild
	}

	s.Target = pattern.Relative(o.Dir, s.Target)

	// A target outside the project root is never watched.
	if s.touches() && s.Target != "" && !filepath.IsAbs(s.Target) && !contains(s.Ignore, s.Target) {
		s.Ignore = append(s.Ignore, s.Target)
	}

	if len(s.Patterns) == 0 {
		return nil, fmt.Errorf("profile %q defines no watch patterns", name)
	}

	return s, nil
}

func (s *Settings) touches() bool {
	return s.Action == action.KindTouch || s.Action == action.KindBuildTouch
}

func (p Profile) clone() Profile {
	p.Patterns = append([]string(nil), p.Patterns...)
	p.Ignore = append([]string(nil), p.Ignore...)

	return p
}

func merge(base, ext Profile) Profile {
	out := base.clone()
	out.Extends = ""

	if ext.Description != "" {
		out.Description = ext.Description
	}

	if len(ext.Patterns) > 0 {
		out.Patterns = append([]string(nil), ext.Patterns...)
	}

	out.Ignore = append(out.Ignore, ext.Ignore...)

	if ext.Action != "" {
		out.Action = ext.Action
	}

	if ext.Target != "" {
		out.Target = ext.Target
	}

	if ext.BuildCommand != "" {
		out.BuildCommand = ext.BuildCommand
	}

	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}
