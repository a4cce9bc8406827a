package common

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// Date parsing for the time-filter options.  The format is one of:
//
//  YYYY-MM-DD
//  Nd (days ago)
//  Nw (weeks ago)
//
// The result is midnight local time on the day in question; sacct interprets its -S and -E
// arguments in the local time zone, so we stay in local time throughout.

// MT: Constant after initialization; immutable
var (
	dateRe  = regexp.MustCompile(`^(\d\d\d\d)-(\d\d)-(\d\d)$`)
	daysRe  = regexp.MustCompile(`^(\d+)d$`)
	weeksRe = regexp.MustCompile(`^(\d+)w$`)
)

func ParseRelativeDate(now time.Time, s string) (time.Time, error) {
	if probe := dateRe.FindStringSubmatch(s); probe != nil {
		yyyy, _ := strconv.ParseUint(probe[1], 10, 32)
		mm, _ := strconv.ParseUint(probe[2], 10, 32)
		dd, _ := strconv.ParseUint(probe[3], 10, 32)
		return time.Date(int(yyyy), time.Month(mm), int(dd), 0, 0, 0, 0, time.Local), nil
	}
	if probe := daysRe.FindStringSubmatch(s); probe != nil {
		days, _ := strconv.ParseUint(probe[1], 10, 32)
		return ThisDay(now.AddDate(0, 0, -int(days))), nil
	}
	if probe := weeksRe.FindStringSubmatch(s); probe != nil {
		weeks, _ := strconv.ParseUint(probe[1], 10, 32)
		return ThisDay(now.AddDate(0, 0, -int(weeks)*7)), nil
	}
	return now, errors.New("Bad time specification")
}

func ThisDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
