package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule 调度参数越界。
var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule decides when the next run should occur after the given time.
// 返回零值表示不再运行。
type Schedule interface {
	Next(after time.Time) time.Time
}

// Daily 每隔 IntervalDays 天在 Hour 整点运行一次。
// 运行日按自 1970-01-01 起的天数对 IntervalDays 取模对齐，结果与进程何时启动无关。
type Daily struct {
	Hour         int
	IntervalDays int
	Location     *time.Location
}

// Validate 校验 Hour 在 0–23、IntervalDays 不小于 1。
func (d Daily) Validate() error {
	if d.Hour < 0 || d.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidSchedule, d.Hour)
	}
	if d.IntervalDays < 1 {
		return fmt.Errorf("%w: intervalDays %d must be >= 1", ErrInvalidSchedule, d.IntervalDays)
	}
	return nil
}

// Next returns the first run time strictly after the given time.
func (d Daily) Next(after time.Time) time.Time {
	if d.Validate() != nil {
		return time.Time{}
	}
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	anchor := after.In(loc)
	for off := 0; off <= d.IntervalDays; off++ {
		candidate := time.Date(anchor.Year(), anchor.Month(), anchor.Day()+off, d.Hour, 0, 0, 0, loc)
		if !candidate.After(anchor) {
			continue
		}
		if dayIndex(candidate)%int64(d.IntervalDays) != 0 {
			continue
		}
		return candidate
	}
	return time.Time{}
}

// dayIndex 按日历日期（忽略时区偏移）计算自纪元起的天数。
func dayIndex(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}
