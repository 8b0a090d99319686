package config

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a wall-clock hour and minute used by the posting schedule.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts HH:MM (24-hour) values such as "06:00" or "9:30".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(value)
	hourPart, minutePart, ok := strings.Cut(trimmed, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: expected HH:MM", value)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", value)
	}
	if len(minutePart) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", value)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", value)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TimesOfDay returns the parsed schedule entries in ascending order.
func (c *Config) TimesOfDay() []TimeOfDay {
	out := make([]TimeOfDay, 0, len(c.Schedule.Times))
	for _, raw := range c.Schedule.Times {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			continue
		}
		out = append(out, tod)
	}
	return out
}
