package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/posagg/calendar"
	"github.com/rustyeddy/posagg/report"
)

const envTZ = "POSAGG_TZ"

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Trading session calendar",
	Long: `Report whether the venue is trading and when it next opens.

The built-in schedule is CME Globex equity index futures in
America/Chicago: Sunday 17:00 reopen, Friday 16:00 close and a daily
16:00-17:00 maintenance break, plus exchange holidays and early closes.
Another venue can be described in YAML via --calendar or
session.calendar_file.

Subcommands:
  status     - Open or closed at --at, and the next open when closed
  next-open  - Next open at or after --at
  convert    - Convert a timestamp between time zones

Examples:
  posagg session status
  posagg session next-open --at "2025-10-04 09:00" --tz America/Mazatlan
  posagg session convert 2025-09-23T06:30 America/Mazatlan UTC`,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the market is open",
	Args:  cobra.NoArgs,
	RunE:  runSessionStatus,
}

var sessionNextOpenCmd = &cobra.Command{
	Use:   "next-open",
	Short: "Show the next market open",
	Args:  cobra.NoArgs,
	RunE:  runSessionNextOpen,
}

var sessionConvertCmd = &cobra.Command{
	Use:   "convert TIMESTAMP FROM_TZ TO_TZ",
	Short: "Convert a timestamp between time zones",
	Args:  cobra.ExactArgs(3),
	RunE:  runSessionConvert,
}

var (
	sessionAt       string
	sessionTZ       string
	sessionCalendar string
	// now is replaced in tests.
	now = time.Now
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionNextOpenCmd)
	sessionCmd.AddCommand(sessionConvertCmd)

	pf := sessionCmd.PersistentFlags()
	pf.StringVar(&sessionAt, "at", "now", `ISO timestamp or "now"; without an offset it is read in --tz`)
	pf.StringVar(&sessionTZ, "tz", "", "display time zone, env "+envTZ+" (default from config)")
	pf.StringVar(&sessionCalendar, "calendar", "", "calendar YAML (default: built-in CME Globex)")
}

// sessionTime is one instant rendered in the display zone, the venue zone
// and UTC.
type sessionTime struct {
	Display string `json:"display"`
	Venue   string `json:"venue"`
	UTC     string `json:"utc"`
	In      string `json:"in,omitempty"`
}

type sessionReport struct {
	Market    string           `json:"market"`
	DisplayTZ string           `json:"display_tz"`
	VenueTZ   string           `json:"venue_tz"`
	Status    *calendar.Status `json:"status,omitempty"`
	At        sessionTime      `json:"at"`
	NextOpen  *sessionTime     `json:"next_open,omitempty"`
}

type sessionContext struct {
	cal  *calendar.Calendar
	disp *time.Location
	at   time.Time
}

func loadSessionContext(cmd *cobra.Command) (*sessionContext, error) {
	fromEnv(cmd, "tz", &sessionTZ, envTZ)
	tz := sessionTZ
	if tz == "" {
		tz = cfg.Session.DisplayTZ
	}
	if tz == "" {
		tz = "UTC"
	}
	disp, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("--tz: %w", err)
	}

	cal := calendar.CMEGlobex()
	path := sessionCalendar
	if path == "" {
		path = cfg.Session.CalendarFile
	}
	if path != "" {
		if cal, err = calendar.LoadFile(path); err != nil {
			return nil, err
		}
	}

	at := now()
	if !strings.EqualFold(strings.TrimSpace(sessionAt), "now") {
		if at, err = calendar.ParseTime(sessionAt, disp); err != nil {
			return nil, fmt.Errorf("--at: %w", err)
		}
	}
	return &sessionContext{cal: cal, disp: disp, at: at}, nil
}

func (s *sessionContext) render(t time.Time) sessionTime {
	return sessionTime{
		Display: t.In(s.disp).Format(time.RFC3339),
		Venue:   t.In(s.cal.Location).Format(time.RFC3339),
		UTC:     t.UTC().Format(time.RFC3339),
	}
}

func (s *sessionContext) report() sessionReport {
	return sessionReport{
		Market:    s.cal.MarketID,
		DisplayTZ: s.disp.String(),
		VenueTZ:   s.cal.Location.String(),
		At:        s.render(s.at),
	}
}

func (s *sessionContext) nextOpen() (*sessionTime, error) {
	nxt, err := s.cal.NextOpen(s.at)
	if err != nil {
		return nil, err
	}
	st := s.render(nxt)
	st.In = fmtWait(nxt.Sub(s.at))
	return &st, nil
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	s, err := loadSessionContext(cmd)
	if err != nil {
		return err
	}

	st := s.cal.Status(s.at)
	r := s.report()
	r.Status = &st
	if !st.Open {
		if r.NextOpen, err = s.nextOpen(); err != nil {
			return err
		}
	}
	log.Debug("session status", "market", r.Market, "open", st.Open, "reason", st.Reason)
	return writeSession(cmd.OutOrStdout(), r)
}

func runSessionNextOpen(cmd *cobra.Command, args []string) error {
	s, err := loadSessionContext(cmd)
	if err != nil {
		return err
	}

	r := s.report()
	if r.NextOpen, err = s.nextOpen(); err != nil {
		return err
	}
	return writeSession(cmd.OutOrStdout(), r)
}

func runSessionConvert(cmd *cobra.Command, args []string) error {
	t, err := calendar.Convert(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	if out == report.JSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"timestamp_out": t.Format(time.RFC3339)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
	return nil
}

func writeSession(w io.Writer, r sessionReport) error {
	if out == report.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	var hdr string
	switch {
	case r.Status == nil:
		hdr = fmt.Sprintf("%s  |  NEXT OPEN", strings.ToUpper(r.Market))
	case r.Status.Open:
		hdr = fmt.Sprintf("%s  |  OPEN (%s)", strings.ToUpper(r.Market), r.Status.Label)
	default:
		hdr = fmt.Sprintf("%s  |  CLOSED (%s)", strings.ToUpper(r.Market), r.Status.Reason)
	}
	fmt.Fprintln(w, hdr)
	fmt.Fprintln(w, strings.Repeat("-", len(hdr)))
	fmt.Fprintf(w, "time @ %s: %s\n", r.DisplayTZ, r.At.Display)
	fmt.Fprintf(w, "time @ venue (%s): %s\n", r.VenueTZ, r.At.Venue)
	fmt.Fprintf(w, "time @ UTC: %s\n", r.At.UTC)
	if n := r.NextOpen; n != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "next open in: %s\n", n.In)
		fmt.Fprintf(w, "  %s: %s\n", r.DisplayTZ, n.Display)
		fmt.Fprintf(w, "  venue (%s): %s\n", r.VenueTZ, n.Venue)
		fmt.Fprintf(w, "  UTC: %s\n", n.UTC)
	}
	return nil
}

// fmtWait renders a wait as "1d 2h 3m", dropping leading zero units.
func fmtWait(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	total := int(d / time.Minute)
	days, hours, mins := total/(24*60), total/60%24, total%60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", mins))
	return sign + strings.Join(parts, " ")
}
