// Package calendar answers whether a futures venue is trading at a given
// instant and when it next opens. Sessions are described per weekday in
// venue local time, with maintenance breaks, a weekend close, full-day
// holidays and early closes layered on top.
package calendar

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Closed reasons reported by Status.
const (
	ReasonWeekend        = "WEEKEND"
	ReasonMaintenance    = "MAINTENANCE"
	ReasonHoliday        = "HOLIDAY"
	ReasonEarlyClose     = "EARLY_CLOSE"
	ReasonOutsideSession = "OUTSIDE_SESSION"
)

// searchLimit bounds NextOpen; two weeks covers a holiday next to a weekend.
const searchLimit = 14 * 24 * time.Hour

// ErrNoOpen is returned by NextOpen when nothing opens within the search
// limit, which only happens with a calendar that has no sessions.
var ErrNoOpen = errors.New("no session opens within two weeks")

//go:embed cme_globex.yaml
var cmeGlobexYAML []byte

// Clock is a time of day in seconds after venue midnight. 24:00 is valid
// as a window end.
type Clock int

func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad time %q, want HH:MM or HH:MM:SS", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad time %q", s)
		}
		v[i] = n
	}
	if v[1] > 59 || v[2] > 59 || v[0] > 24 || (v[0] == 24 && v[1]+v[2] > 0) {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return Clock(v[0]*3600 + v[1]*60 + v[2]), nil
}

func clockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/3600, int(c)%3600/60)
}

// Window is a trading session [Start, End) with a label such as RTH.
type Window struct {
	Start Clock
	End   Clock
	Label string
}

func (w Window) contains(c Clock) bool {
	return c >= w.Start && c < w.End
}

// Maintenance is a daily break on the listed weekdays.
type Maintenance struct {
	Days  []time.Weekday
	Start Clock
	End   Clock
}

// EarlyClose ends trading for the rest of its date at RTHEnd.
type EarlyClose struct {
	RTHEnd Clock
	Label  string
}

// Calendar is an immutable session schedule for one venue.
type Calendar struct {
	MarketID     string
	Location     *time.Location
	Weekly       map[time.Weekday][]Window
	Maintenance  []Maintenance
	FridayClose  Clock
	SundayReopen Clock
	Labels       map[string]string
	Holidays     map[string]bool       // venue dates, 2006-01-02
	EarlyCloses  map[string]EarlyClose // venue dates, 2006-01-02
}

// Status is the state of the venue at one instant. Label is the session
// label while open and CLOSED otherwise.
type Status struct {
	Open   bool   `json:"open"`
	Label  string `json:"label"`
	Reason string `json:"reason,omitempty"`
}

// CMEGlobex returns the built-in CME Globex equity index schedule in
// America/Chicago.
func CMEGlobex() *Calendar {
	c, err := Parse(cmeGlobexYAML)
	if err != nil {
		panic(fmt.Sprintf("calendar: built-in CME schedule: %v", err))
	}
	return c
}

// Status reports whether the venue is open at t.
func (c *Calendar) Status(t time.Time) Status {
	local := t.In(c.Location)
	dow := local.Weekday()
	now := clockOf(local)
	date := local.Format("2006-01-02")

	if (dow == time.Friday && now >= c.FridayClose) ||
		dow == time.Saturday ||
		(dow == time.Sunday && now < c.SundayReopen) {
		return c.closed("closed_reason_weekend", ReasonWeekend)
	}

	for _, m := range c.Maintenance {
		if hasDay(m.Days, dow) && now >= m.Start && now < m.End {
			return c.closed("closed_reason_maintenance", ReasonMaintenance)
		}
	}

	if c.Holidays[date] {
		return c.closed("closed_reason_holiday", ReasonHoliday)
	}

	if ec, ok := c.EarlyCloses[date]; ok && now >= ec.RTHEnd {
		return Status{Label: "CLOSED", Reason: ec.Label}
	}

	for _, w := range c.Weekly[dow] {
		if w.contains(now) {
			return Status{Open: true, Label: w.Label}
		}
	}
	return Status{Label: "CLOSED", Reason: ReasonOutsideSession}
}

func (c *Calendar) closed(labelKey, reason string) Status {
	if l := c.Labels[labelKey]; l != "" {
		reason = l
	}
	return Status{Label: "CLOSED", Reason: reason}
}

// IsOpen is shorthand for Status(t).Open.
func (c *Calendar) IsOpen(t time.Time) bool {
	return c.Status(t).Open
}

// NextOpen returns t when the venue is open at t, otherwise the first
// whole minute after t at which it is.
func (c *Calendar) NextOpen(t time.Time) (time.Time, error) {
	if c.IsOpen(t) {
		return t, nil
	}
	cur := t.Truncate(time.Minute)
	for end := t.Add(searchLimit); cur.Before(end); {
		cur = cur.Add(time.Minute)
		if c.IsOpen(cur) {
			return cur, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s after %s: %w", c.MarketID, t.Format(time.RFC3339), ErrNoOpen)
}

func hasDay(days []time.Weekday, d time.Weekday) bool {
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}

// file mirrors the YAML layout of a calendar definition.
type file struct {
	MarketID string `yaml:"market_id"`
	VenueTZ  string `yaml:"venue_tz"`
	Weekly   []struct {
		Days    []string `yaml:"days"`
		Windows []struct {
			Start string `yaml:"start"`
			End   string `yaml:"end"`
			Label string `yaml:"label"`
		} `yaml:"windows"`
	} `yaml:"weekly"`
	Maintenance []struct {
		Days  []string `yaml:"days"`
		Start string   `yaml:"start"`
		End   string   `yaml:"end"`
	} `yaml:"maintenance"`
	WeekendClose struct {
		FridayClose  string `yaml:"friday_close"`
		SundayReopen string `yaml:"sunday_reopen"`
	} `yaml:"weekend_close"`
	Labels      map[string]string `yaml:"labels"`
	Holidays    []string          `yaml:"holidays"`
	EarlyCloses map[string]struct {
		RTHEnd string `yaml:"rth_end"`
		Label  string `yaml:"label"`
	} `yaml:"early_closes"`
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseDays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, ok := weekdays[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseDate(s string) (string, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("bad date %q", s)
	}
	return d.Format("2006-01-02"), nil
}

// LoadFile reads a calendar definition from a YAML file.
func LoadFile(path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse builds a Calendar from YAML. The weekend close defaults to Friday
// 16:00 and Sunday 17:00.
func Parse(data []byte) (*Calendar, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}
	if f.MarketID == "" {
		return nil, fmt.Errorf("market_id is required")
	}
	loc, err := time.LoadLocation(f.VenueTZ)
	if err != nil || f.VenueTZ == "" {
		return nil, fmt.Errorf("venue_tz %q: unknown time zone", f.VenueTZ)
	}

	c := &Calendar{
		MarketID:    f.MarketID,
		Location:    loc,
		Weekly:      make(map[time.Weekday][]Window),
		Labels:      f.Labels,
		Holidays:    make(map[string]bool, len(f.Holidays)),
		EarlyCloses: make(map[string]EarlyClose, len(f.EarlyCloses)),
	}

	for _, block := range f.Weekly {
		days, err := parseDays(block.Days)
		if err != nil {
			return nil, fmt.Errorf("weekly: %w", err)
		}
		for _, w := range block.Windows {
			start, err := ParseClock(w.Start)
			if err != nil {
				return nil, fmt.Errorf("weekly: %w", err)
			}
			end, err := ParseClock(w.End)
			if err != nil {
				return nil, fmt.Errorf("weekly: %w", err)
			}
			if end <= start {
				return nil, fmt.Errorf("weekly: window %s-%s ends before it starts", w.Start, w.End)
			}
			for _, d := range days {
				c.Weekly[d] = append(c.Weekly[d], Window{Start: start, End: end, Label: w.Label})
			}
		}
	}

	for _, m := range f.Maintenance {
		days, err := parseDays(m.Days)
		if err != nil {
			return nil, fmt.Errorf("maintenance: %w", err)
		}
		start, err := ParseClock(m.Start)
		if err != nil {
			return nil, fmt.Errorf("maintenance: %w", err)
		}
		end, err := ParseClock(m.End)
		if err != nil {
			return nil, fmt.Errorf("maintenance: %w", err)
		}
		c.Maintenance = append(c.Maintenance, Maintenance{Days: days, Start: start, End: end})
	}

	fc, sr := f.WeekendClose.FridayClose, f.WeekendClose.SundayReopen
	if fc == "" {
		fc = "16:00"
	}
	if sr == "" {
		sr = "17:00"
	}
	if c.FridayClose, err = ParseClock(fc); err != nil {
		return nil, fmt.Errorf("weekend_close: %w", err)
	}
	if c.SundayReopen, err = ParseClock(sr); err != nil {
		return nil, fmt.Errorf("weekend_close: %w", err)
	}

	for _, h := range f.Holidays {
		d, err := parseDate(h)
		if err != nil {
			return nil, fmt.Errorf("holidays: %w", err)
		}
		c.Holidays[d] = true
	}

	for k, v := range f.EarlyCloses {
		d, err := parseDate(k)
		if err != nil {
			return nil, fmt.Errorf("early_closes: %w", err)
		}
		end, err := ParseClock(v.RTHEnd)
		if err != nil {
			return nil, fmt.Errorf("early_closes %s: %w", d, err)
		}
		label := v.Label
		if label == "" {
			label = ReasonEarlyClose
		}
		c.EarlyCloses[d] = EarlyClose{RTHEnd: end, Label: label}
	}

	return c, nil
}
