// Package timeslot 描述每周重复的上课时段及其重叠判定。
package timeslot

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDay   = errors.New("day_of_week must be between 0 (Monday) and 4 (Friday)")
	ErrInvalidRange = errors.New("end_time must be after start_time")
)

// Weekday 教学日：0=Monday … 4=Friday
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// Valid 是否为合法教学日
func (d Weekday) Valid() bool { return d >= Monday && d <= Friday }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// TimeWeekday 转为 time.Weekday（Monday=1）
func (d Weekday) TimeWeekday() time.Weekday {
	return time.Weekday((int(d) + 1) % 7)
}

// Slot 每周重复的时段 [Start, End)
type Slot struct {
	Day   Weekday
	Start Clock
	End   Clock
}

// Validate 校验教学日范围与 End > Start
func (s Slot) Validate() error {
	if !s.Day.Valid() {
		return ErrInvalidDay
	}
	if !s.Start.Valid() || !s.End.Valid() {
		return ErrInvalidClock
	}
	if s.End <= s.Start {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps 见 Overlaps
func (s Slot) Overlaps(o Slot) bool { return Overlaps(s, o) }

// String 形如 "Monday 09:00-10:00"
func (s Slot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Day, s.Start, s.End)
}

// Overlaps 半开区间重叠判定：同一天且 max(start) < min(end)。
// 首尾相接（10:00-11:00 与 11:00-12:00）不算重叠，零长度时段与任何时段都不重叠。
func Overlaps(a, b Slot) bool {
	if a.Day != b.Day {
		return false
	}
	return max(a.Start, b.Start) < min(a.End, b.End)
}
