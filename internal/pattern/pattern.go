// Package pattern compiles the glob patterns that select which files
// devwatch reacts to.
//
// Patterns are matched against slash-separated paths relative to the
// watch root. The supported syntax is that of github.com/gobwas/glob with
// '/' as the separator: '*' and '?' stay within one path segment, '**'
// crosses segments, '[...]' is a character class and '{a,b}' an
// alternation. A '**/' segment also matches zero directories, so
// "src/**/*.css" selects "src/app.css" as well as "src/a/b/app.css".
package pattern

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

const separator = '/'

// metaChars are the characters that end the static prefix of a pattern.
const metaChars = "*?[{"

// Set is an immutable, ordered collection of include and ignore patterns.
type Set struct {
	include  []string
	ignore   []string
	included []glob.Glob
	ignored  []glob.Glob
}

// Compile builds a Set. At least one include pattern is required.
func Compile(include, ignore []string) (*Set, error) {
	if len(include) == 0 {
		return nil, fmt.Errorf("at least one watch pattern is required")
	}

	s := &Set{}

	for _, p := range include {
		n := Normalize(p)
		if n == "" {
			return nil, fmt.Errorf("empty watch pattern")
		}

		if isAbs(n) {
			return nil, fmt.Errorf("watch pattern %q must be relative to the project root", p)
		}

		globs, err := compileAll(n)
		if err != nil {
			return nil, fmt.Errorf("compiling watch pattern %q: %w", p, err)
		}

		s.include = append(s.include, n)
		s.included = append(s.included, globs...)
	}

	for _, p := range ignore {
		n := Normalize(p)
		if n == "" {
			continue
		}

		if isAbs(n) {
			return nil, fmt.Errorf("ignore pattern %q must be relative to the project root", p)
		}

		globs, err := compileAll(n)
		if err != nil {
			return nil, fmt.Errorf("compiling ignore pattern %q: %w", p, err)
		}

		s.ignore = append(s.ignore, n)
		s.ignored = append(s.ignored, globs...)
	}

	return s, nil
}

// Include returns the normalized include patterns in configured order.
func (s *Set) Include() []string {
	return append([]string(nil), s.include...)
}

// Ignore returns the normalized ignore patterns in configured order.
func (s *Set) Ignore() []string {
	return append([]string(nil), s.ignore...)
}

// Match reports whether rel matches an include pattern and no ignore pattern.
func (s *Set) Match(rel string) bool {
	rel = Normalize(rel)
	if rel == "" {
		return false
	}

	if s.Ignored(rel) {
		return false
	}

	for _, g := range s.included {
		if g.Match(rel) {
			return true
		}
	}

	return false
}

// Ignored reports whether rel matches any ignore pattern.
func (s *Set) Ignored(rel string) bool {
	rel = Normalize(rel)

	for _, g := range s.ignored {
		if g.Match(rel) {
			return true
		}
	}

	return false
}

// Roots returns the directories that must be watched recursively to
// observe every path the include patterns can match. Roots nested inside
// another root are dropped. The result is sorted.
func (s *Set) Roots() []string {
	seen := make(map[string]bool)

	for _, p := range s.include {
		seen[StaticRoot(p)] = true
	}

	candidates := make([]string, 0, len(seen))
	for r := range seen {
		candidates = append(candidates, r)
	}

	sort.Strings(candidates)

	var roots []string

	for _, c := range candidates {
		nested := false

		for _, r := range roots {
			if isWithin(c, r) {
				nested = true

				break
			}
		}

		if !nested {
			roots = append(roots, c)
		}
	}

	return roots
}

// StaticRoot returns the longest directory prefix of p that contains no
// glob metacharacters. A pattern without metacharacters names a single
// file, so its parent directory is returned.
func StaticRoot(p string) string {
	p = Normalize(p)
	segments := strings.Split(p, "/")

	var static []string

	for i, seg := range segments {
		if strings.ContainsAny(seg, metaChars) {
			break
		}

		if i == len(segments)-1 {
			break
		}

		static = append(static, seg)
	}

	if len(static) == 0 {
		return "."
	}

	return strings.Join(static, "/")
}

// Normalize converts p to a clean slash-separated relative form.
func Normalize(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return ""
	}

	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")

	if p == "." {
		return ""
	}

	return p
}

// Relative rewrites an absolute path inside dir as a slash-separated path
// relative to dir, the form patterns are matched against. Relative paths
// and paths outside dir are returned unchanged.
func Relative(dir, p string) string {
	if p == "" || !filepath.IsAbs(p) {
		return p
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return p
	}

	rel, err := filepath.Rel(abs, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}

	return filepath.ToSlash(rel)
}

// isAbs reports a normalized pattern rooted at "/" or at a drive letter.
func isAbs(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}

	return len(p) >= 2 && p[1] == ':' &&
		(p[0] >= 'a' && p[0] <= 'z' || p[0] >= 'A' && p[0] <= 'Z')
}

// compileAll compiles p together with every zero-directory variant of its
// '**/' segments.
func compileAll(p string) ([]glob.Glob, error) {
	variants := expandGlobstar(p)
	globs := make([]glob.Glob, 0, len(variants))

	for _, v := range variants {
		g, err := glob.Compile(v, separator)
		if err != nil {
			return nil, err
		}

		globs = append(globs, g)
	}

	return globs, nil
}

// expandGlobstar returns p plus each variant where one or more '**/'
// segments have been removed.
func expandGlobstar(p string) []string {
	seen := map[string]bool{p: true}
	out := []string{p}

	for i := 0; i < len(out); i++ {
		cur := out[i]

		for idx := 0; idx < len(cur); {
			j := strings.Index(cur[idx:], "**/")
			if j < 0 {
				break
			}

			at := idx + j
			if at == 0 || cur[at-1] == '/' {
				v := cur[:at] + cur[at+3:]
				if !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}

			idx = at + 3
		}
	}

	return out
}

func isWithin(p, root string) bool {
	if root == "." {
		return true
	}

	return p == root || strings.HasPrefix(p, root+"/")
}
