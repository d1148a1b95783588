package service

import (
	"time"

	"caja/internal/domain"
)

// Clock источник «сегодня» для счётчика и фильтров по дню
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location) Clock {
	return NewClockFunc(loc, time.Now)
}

func NewClockFunc(loc *time.Location, now func() time.Time) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{loc: loc, now: now}
}

func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now().In(c.location())
	}
	return c.now().In(c.location())
}

func (c Clock) Today() string { return domain.DayOf(c.Now(), c.location()) }

func (c Clock) Location() *time.Location { return c.location() }

func (c Clock) location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}
