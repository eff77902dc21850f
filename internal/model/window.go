package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DefaultLookbackDays is how far an incremental run reaches back so that
// weekends and holidays still cover at least one trading day.
const DefaultLookbackDays = 2

// Mode selects which window variant a run uses.
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeBackfill    Mode = "backfill"
)

// Period is a relative lookback token understood by the providers.
type Period string

const (
	Period1d  Period = "1d"
	Period5d  Period = "5d"
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
	Period10y Period = "10y"
	PeriodYTD Period = "ytd"
	PeriodMax Period = "max"
)

var supportedPeriods = map[Period]struct{}{
	Period1d: {}, Period5d: {}, Period1mo: {}, Period3mo: {}, Period6mo: {},
	Period1y: {}, Period2y: {}, Period5y: {}, Period10y: {}, PeriodYTD: {}, PeriodMax: {},
}

var periodPattern = regexp.MustCompile(`^(\d+)\s*(d|days?|mo|months?|y|yrs?|years?)$`)

// ParsePeriod accepts provider tokens ("3mo") and spelled-out forms
// ("3 months", "1 year").
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "ytd", "max":
		return Period(s), nil
	}
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("invalid period %q", s)
	}
	unit := "d"
	switch {
	case strings.HasPrefix(m[2], "mo"):
		unit = "mo"
	case strings.HasPrefix(m[2], "y"):
		unit = "y"
	}
	n, _ := strconv.Atoi(m[1])
	p := Period(strconv.Itoa(n) + unit)
	if _, ok := supportedPeriods[p]; !ok {
		return "", fmt.Errorf("unsupported period %q", s)
	}
	return p, nil
}

// Start resolves the period to an explicit start date relative to today.
// It returns false for PeriodMax, which has no lower bound.
func (p Period) Start(today civil.Date) (civil.Date, bool) {
	switch p {
	case PeriodMax:
		return civil.Date{}, false
	case PeriodYTD:
		return civil.Date{Year: today.Year, Month: time.January, Day: 1}, true
	}
	s := string(p)
	t := today.In(time.UTC)
	switch {
	case strings.HasSuffix(s, "mo"):
		n, _ := strconv.Atoi(strings.TrimSuffix(s, "mo"))
		return civil.DateOf(t.AddDate(0, -n, 0)), true
	case strings.HasSuffix(s, "y"):
		n, _ := strconv.Atoi(strings.TrimSuffix(s, "y"))
		return civil.DateOf(t.AddDate(-n, 0, 0)), true
	case strings.HasSuffix(s, "d"):
		n, _ := strconv.Atoi(strings.TrimSuffix(s, "d"))
		return today.AddDays(-n), true
	}
	return civil.Date{}, false
}

// Window is the time range requested from the provider. Incremental windows
// use Start and End (both inclusive); backfill windows use Period only.
type Window struct {
	Mode   Mode
	Start  civil.Date
	End    civil.Date
	Period Period
}

// Incremental returns the window [end - lookbackDays, end].
func Incremental(end civil.Date, lookbackDays int) Window {
	if lookbackDays < 0 {
		lookbackDays = 0
	}
	return Window{Mode: ModeIncremental, Start: end.AddDays(-lookbackDays), End: end}
}

// Backfill returns a relative lookback window.
func Backfill(p Period) Window {
	return Window{Mode: ModeBackfill, Period: p}
}

// Validate checks that exactly one window variant is populated.
func (w Window) Validate() error {
	switch w.Mode {
	case ModeIncremental:
		if !w.Start.IsValid() || !w.End.IsValid() {
			return errors.New("incremental window needs valid start and end dates")
		}
		if w.End.Before(w.Start) {
			return fmt.Errorf("incremental window ends (%s) before it starts (%s)", w.End, w.Start)
		}
		if w.Period != "" {
			return errors.New("incremental window cannot carry a period")
		}
	case ModeBackfill:
		if _, ok := supportedPeriods[w.Period]; !ok {
			return fmt.Errorf("unsupported backfill period %q", w.Period)
		}
	default:
		return fmt.Errorf("unknown window mode %q", w.Mode)
	}
	return nil
}

func (w Window) String() string {
	if w.Mode == ModeBackfill {
		return fmt.Sprintf("backfill (%s)", w.Period)
	}
	return fmt.Sprintf("incremental [%s, %s]", w.Start, w.End)
}

// Today returns the current UTC calendar date.
func Today(now time.Time) civil.Date { return civil.DateOf(now.UTC()) }

// PartitionKey returns the snapshot partition for a run processed at now.
func PartitionKey(now time.Time) string { return now.UTC().Format("2006-01-02") }
