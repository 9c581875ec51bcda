package config

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckVersion verifies that current satisfies the semver constraint.
// An empty constraint always passes. Development builds whose version is
// not valid semver are not checked.
func CheckVersion(constraint, current string) error {
	if strings.TrimSpace(constraint) == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid requires constraint %q: %w", constraint, err)
	}

	v, err := semver.NewVersion(current)
	if err != nil {
		return nil
	}

	if ok, errs := c.Validate(v); !ok {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}

		return fmt.Errorf("devwatch %s does not satisfy %q: %s", v, constraint, strings.Join(msgs, "; "))
	}

	return nil
}
