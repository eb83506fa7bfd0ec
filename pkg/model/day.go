package model

import (
	"encoding/json"
	"time"
	"tourbook/pkg/daterange"
)

// Day is a calendar date on the wire. It accepts YYYY-MM-DD or RFC3339 and
// always holds a UTC midnight.
type Day time.Time

func DayOf(t time.Time) Day {
	return Day(daterange.Normalize(t))
}

func (d Day) Time() time.Time {
	return time.Time(d)
}

func (d Day) IsZero() bool {
	return time.Time(d).IsZero()
}

func (d Day) String() string {
	return daterange.Format(time.Time(d))
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Day{}
		return nil
	}
	t, err := daterange.ParseDay(s)
	if err != nil {
		return err
	}
	*d = Day(t)
	return nil
}
