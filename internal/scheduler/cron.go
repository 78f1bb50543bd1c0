// Package scheduler runs the word-of-the-day job on a cron schedule.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpr is a parsed 5-field cron expression (minute, hour, day-of-month,
// month, day-of-week), with each field held as a bitmask.
type CronExpr struct {
	minute uint64
	hour   uint32
	dom    uint32
	month  uint16
	dow    uint8
}

// ParseCron parses a standard 5-field cron expression.
// Supports: *, */N, N, N-M, N-M/S, comma-separated combinations.
func ParseCron(expr string) (*CronExpr, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron: expected 5 fields, got %d", len(fields))
	}

	minute, err := parseField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("cron: minute: %w", err)
	}
	hour, err := parseField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("cron: hour: %w", err)
	}
	dom, err := parseField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("cron: day-of-month: %w", err)
	}
	month, err := parseField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("cron: month: %w", err)
	}
	dow, err := parseField(fields[4], 0, 6)
	if err != nil {
		return nil, fmt.Errorf("cron: day-of-week: %w", err)
	}

	return &CronExpr{
		minute: minute,
		hour:   uint32(hour),
		dom:    uint32(dom),
		month:  uint16(month),
		dow:    uint8(dow),
	}, nil
}

// Matches reports whether t falls on the expression, in t's location.
func (c *CronExpr) Matches(t time.Time) bool {
	return c.minute&(1<<uint(t.Minute())) != 0 &&
		c.hour&(1<<uint(t.Hour())) != 0 &&
		c.dom&(1<<uint(t.Day())) != 0 &&
		c.month&(1<<uint(t.Month())) != 0 &&
		c.dow&(1<<uint(t.Weekday())) != 0
}

// Next returns the next time after t that matches, searching up to two years
// ahead. Returns the zero time if nothing matches.
func (c *CronExpr) Next(t time.Time) time.Time {
	candidate := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(2, 0, 0)

	for candidate.Before(limit) {
		if c.month&(1<<uint(candidate.Month())) == 0 {
			candidate = time.Date(candidate.Year(), candidate.Month()+1, 1, 0, 0, 0, 0, candidate.Location())
			continue
		}
		if c.dom&(1<<uint(candidate.Day())) == 0 || c.dow&(1<<uint(candidate.Weekday())) == 0 {
			candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day()+1, 0, 0, 0, 0, candidate.Location())
			continue
		}
		if c.hour&(1<<uint(candidate.Hour())) == 0 {
			candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), candidate.Hour()+1, 0, 0, 0, candidate.Location())
			continue
		}
		if c.minute&(1<<uint(candidate.Minute())) == 0 {
			candidate = candidate.Add(time.Minute)
			continue
		}
		return candidate
	}
	return time.Time{}
}

// parseField parses a single cron field into a bitmask over [min, max].
func parseField(field string, min, max int) (uint64, error) {
	var mask uint64
	for _, part := range strings.Split(field, ",") {
		m, err := parsePart(part, min, max)
		if err != nil {
			return 0, err
		}
		mask |= m
	}
	return mask, nil
}

// parsePart parses one comma-separated part: *, */N, N, N-M, N-M/S.
func parsePart(part string, min, max int) (uint64, error) {
	lo, hi, step := min, max, 1

	rangeStr, stepStr, hasStep := strings.Cut(part, "/")
	if hasStep {
		s, err := strconv.Atoi(stepStr)
		if err != nil || s <= 0 {
			return 0, fmt.Errorf("invalid step in %q", part)
		}
		step = s
	}

	switch {
	case rangeStr == "*":
		// full range
	case strings.Contains(rangeStr, "-"):
		loStr, hiStr, _ := strings.Cut(rangeStr, "-")
		var err error
		if lo, err = strconv.Atoi(loStr); err != nil {
			return 0, fmt.Errorf("invalid range start %q", loStr)
		}
		if hi, err = strconv.Atoi(hiStr); err != nil {
			return 0, fmt.Errorf("invalid range end %q", hiStr)
		}
	default:
		v, err := strconv.Atoi(rangeStr)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q", rangeStr)
		}
		lo, hi = v, v
	}

	if lo < min || hi > max || lo > hi {
		return 0, fmt.Errorf("range %d-%d out of bounds [%d,%d]", lo, hi, min, max)
	}

	var mask uint64
	for i := lo; i <= hi; i += step {
		mask |= 1 << uint(i)
	}
	return mask, nil
}
