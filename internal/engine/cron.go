package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// matchParser accepts 6-field expressions (seconds first). 5-field
// expressions are normalized by prefixing a literal "0" seconds field
// before parsing, so both forms share one code path.
var matchParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Due reports whether spec's next occurrence lands exactly on the minute
// containing now.
//
// Both the probe point and the comparison point are truncated to whole
// minutes, which makes the check idempotent when the caller runs slightly
// before or after the minute boundary. The next occurrence is computed
// strictly after the previous minute rather than pattern-matching the
// current one, so irregular fields (day-of-month wraparounds and the
// like) need no extra calendar arithmetic here.
func Due(spec string, now time.Time) (bool, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return false, fmt.Errorf("%w: empty expression", ErrInvalidSchedule)
	}

	if len(strings.Fields(spec)) == 5 {
		spec = "0 " + spec
	}

	sched, err := matchParser.Parse(spec)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, spec, err)
	}

	current := now.Truncate(time.Minute)
	previous := current.Add(-time.Minute)

	return sched.Next(previous).Equal(current), nil
}

// ValidateSpec reports whether spec is an acceptable 5- or 6-field cron
// expression, without evaluating it against any instant.
func ValidateSpec(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("%w: empty expression", ErrInvalidSchedule)
	}
	if len(strings.Fields(spec)) == 5 {
		spec = "0 " + spec
	}
	if _, err := matchParser.Parse(spec); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, spec, err)
	}
	return nil
}
