// Package calendar resolves shop-local dates and daily wall-clock schedules.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultLayout formats dates as dd-MM-yyyy.
const DefaultLayout = "02-01-2006"

// Calendar formats dates in a fixed shop timezone.
type Calendar struct {
	loc    *time.Location
	layout string
}

func New(loc *time.Location, layout string) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if strings.TrimSpace(layout) == "" {
		layout = DefaultLayout
	}
	return Calendar{loc: loc, layout: layout}
}

func (c Calendar) Location() *time.Location { return c.loc }
func (c Calendar) Layout() string           { return c.layout }

// Today returns the shop-local date of now.
func (c Calendar) Today(now time.Time) string {
	return now.In(c.loc).Format(c.layout)
}

// Tomorrow returns the shop-local date after now.
func (c Calendar) Tomorrow(now time.Time) string {
	return now.In(c.loc).AddDate(0, 0, 1).Format(c.layout)
}

// Format renders t as a shop-local date.
func (c Calendar) Format(t time.Time) string {
	return t.In(c.loc).Format(c.layout)
}

// Parse reads a shop-local date string.
func (c Calendar) Parse(value string) (time.Time, error) {
	return time.ParseInLocation(c.layout, strings.TrimSpace(value), c.loc)
}

// NextDaily returns the next occurrence of hour:minute in the shop timezone
// strictly after now: today when still ahead, otherwise tomorrow.
func (c Calendar) NextDaily(now time.Time, hour, minute int) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("hour %d out of range", hour)
	}
	if minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("minute %d out of range", minute)
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse daily schedule: %w", err)
	}
	return sched.Next(now.In(c.loc)).UTC(), nil
}
