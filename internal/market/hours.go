package market

import (
	"fmt"
	"time"
)

// Hours is a daily trading window in UTC. Open is inclusive, Close exclusive.
// Weekends and exchange holidays are not modeled.
type Hours struct {
	Open  time.Duration // offset from UTC midnight
	Close time.Duration
}

// DefaultHours returns the NYSE/NASDAQ regular session, 14:30-21:00 UTC.
func DefaultHours() Hours {
	return Hours{
		Open:  14*time.Hour + 30*time.Minute,
		Close: 21 * time.Hour,
	}
}

// ParseHours builds Hours from "HH:MM" strings.
func ParseHours(open, close string) (Hours, error) {
	o, err := parseClock(open)
	if err != nil {
		return Hours{}, fmt.Errorf("parse open %q: %w", open, err)
	}
	c, err := parseClock(close)
	if err != nil {
		return Hours{}, fmt.Errorf("parse close %q: %w", close, err)
	}
	if o >= c {
		return Hours{}, fmt.Errorf("open %s must be before close %s", open, close)
	}
	return Hours{Open: o, Close: c}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// IsOpen reports whether now falls inside [Open, Close) in UTC.
func (h Hours) IsOpen(now time.Time) bool {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := now.Sub(midnight)
	return offset >= h.Open && offset < h.Close
}

func (h Hours) String() string {
	return fmt.Sprintf("%s-%s UTC", clock(h.Open), clock(h.Close))
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
