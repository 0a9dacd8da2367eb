package cronclock

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Clock parses standard 5-field cron expressions (minute hour day month
// weekday) and evaluates them against IANA timezones. Descriptors such as
// @daily are rejected: schedules store the plain 5-field grammar only.
type Clock struct {
	parser cron.Parser
}

func New() *Clock {
	return &Clock{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

func (c *Clock) Validate(expr string) error {
	if _, err := c.parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

func (c *Clock) Next(expr, tz string, after time.Time) (time.Time, error) {
	sched, err := c.parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	loc, err := location(tz)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after.In(loc)), nil
}

func (c *Clock) NextN(expr, tz string, after time.Time, n int) ([]time.Time, error) {
	sched, err := c.parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	loc, err := location(tz)
	if err != nil {
		return nil, err
	}
	occurrences := make([]time.Time, 0, n)
	cursor := after.In(loc)
	for i := 0; i < n; i++ {
		cursor = sched.Next(cursor)
		if cursor.IsZero() {
			break
		}
		occurrences = append(occurrences, cursor)
	}
	return occurrences, nil
}

func location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}
