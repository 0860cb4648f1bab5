package timeslot

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidClock 时刻格式无效
var ErrInvalidClock = errors.New("invalid time, expected HH:MM")

const minutesPerDay = 24 * 60

// Clock 一天内的本地时刻，以自零点起的分钟数表示（无时区）
type Clock int

// NewClock 由时、分构造 Clock
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidClock, hour, minute)
	}
	return Clock(hour*60 + minute), nil
}

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS"（秒被截断）
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if len(parts) == 3 {
		// PostgreSQL 可能返回 "09:00:00.000000"
		sec := parts[2]
		if i := strings.IndexByte(sec, '.'); i >= 0 {
			sec = sec[:i]
		}
		n, err := strconv.Atoi(sec)
		if err != nil || n < 0 || n > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	return NewClock(hour, minute)
}

// MustParseClock 解析失败时 panic，仅用于常量与测试
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hour 小时
func (c Clock) Hour() int { return int(c) / 60 }

// Minute 分钟
func (c Clock) Minute() int { return int(c) % 60 }

// Valid 是否落在 [00:00, 23:59]
func (c Clock) Valid() bool { return c >= 0 && c < minutesPerDay }

// String 格式化为 24 小时制补零 "HH:MM"
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On 返回 date 当天该时刻（沿用 date 的时区）
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, date.Location())
}

// MarshalJSON 序列化为 "HH:MM"
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON 接受 "HH:MM" / "HH:MM:SS"
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClock, string(data))
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan 实现 sql.Scanner，兼容 TIME 列的多种驱动返回形式
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case string:
		parsed, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case []byte:
		parsed, err := ParseClock(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case time.Time:
		*c = Clock(v.Hour()*60 + v.Minute())
		return nil
	case int64:
		// pgx 原生 time 类型：自零点起的微秒数
		*c = Clock(v / int64(time.Minute/time.Microsecond))
		return nil
	default:
		return fmt.Errorf("Clock.Scan: unsupported type %T", src)
	}
}

// Value 实现 driver.Valuer，写入 "HH:MM:00"
func (c Clock) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClock, int(c))
	}
	return c.String() + ":00", nil
}
