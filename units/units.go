// Converters for the compact textual magnitudes found in sacct output: byte quantities
// with binary or metric suffixes, Slurm elapsed-time strings, and Slurm timestamps.
//
// All converters are pure and total over their declared grammar; anything else fails with
// an error wrapping ErrConversion.  The caller decides what a failed field means - here it
// is never fatal.

package units

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MT: Constant after initialization; immutable
var ErrConversion = errors.New("unconvertible value")

var magnitudeRe = regexp.MustCompile(`^([0-9]*\.?[0-9]+)([kKmMgGtTpP])?$`)

// Suffix exponents: k=1 ... p=5, case-insensitive.  No suffix means raw bytes.
func suffixExponent(s string) int {
	switch strings.ToLower(s) {
	case "k":
		return 1
	case "m":
		return 2
	case "g":
		return 3
	case "t":
		return 4
	case "p":
		return 5
	default:
		return 0
	}
}

func scaled(s string, base float64) (float64, error) {
	m := magnitudeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrConversion, s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrConversion, s)
	}
	return n * math.Pow(base, float64(suffixExponent(m[2]))), nil
}

// FloatBytes interprets "2M" etc with powers of 1024, preserving fractional bytes.
func FloatBytes(s string) (float64, error) {
	return scaled(s, 1024)
}

// IntBytes is FloatBytes rounded to the nearest whole byte.
func IntBytes(s string) (int64, error) {
	f, err := FloatBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(f)), nil
}

// FloatMetric interprets the same suffixes with powers of 1000.
func FloatMetric(s string) (float64, error) {
	return scaled(s, 1000)
}

// IntMetric is FloatMetric rounded to the nearest whole unit.
func IntMetric(s string) (int64, error) {
	f, err := FloatMetric(s)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(f)), nil
}

// Slurmtime parses the Slurm elapsed-time grammar [[days-]hours:]minutes[:seconds] and
// returns seconds.  The forms, tried in this order:
//
//	D-H:M:S
//	D-H:M
//	D-H
//	H:M:S
//	M:S
//	bare number (Slurm's default unit is minutes)
//
// All components are nonnegative integers.
func Slurmtime(s string) (int64, error) {
	var days, hours, minutes, seconds int64
	rest := s
	if before, after, found := strings.Cut(rest, "-"); found {
		d, err := parseComponent(before)
		if err != nil {
			return 0, err
		}
		days = d
		parts := strings.Split(after, ":")
		switch len(parts) {
		case 3:
			var e1, e2, e3 error
			hours, e1 = parseComponent(parts[0])
			minutes, e2 = parseComponent(parts[1])
			seconds, e3 = parseComponent(parts[2])
			if err := errors.Join(e1, e2, e3); err != nil {
				return 0, err
			}
		case 2:
			var e1, e2 error
			hours, e1 = parseComponent(parts[0])
			minutes, e2 = parseComponent(parts[1])
			if err := errors.Join(e1, e2); err != nil {
				return 0, err
			}
		case 1:
			h, err := parseComponent(parts[0])
			if err != nil {
				return 0, err
			}
			hours = h
		default:
			return 0, fmt.Errorf("%w: %q", ErrConversion, s)
		}
	} else {
		parts := strings.Split(rest, ":")
		switch len(parts) {
		case 3:
			var e1, e2, e3 error
			hours, e1 = parseComponent(parts[0])
			minutes, e2 = parseComponent(parts[1])
			seconds, e3 = parseComponent(parts[2])
			if err := errors.Join(e1, e2, e3); err != nil {
				return 0, err
			}
		case 2:
			var e1, e2 error
			minutes, e1 = parseComponent(parts[0])
			seconds, e2 = parseComponent(parts[1])
			if err := errors.Join(e1, e2); err != nil {
				return 0, err
			}
		case 1:
			m, err := parseComponent(parts[0])
			if err != nil {
				return 0, err
			}
			minutes = m
		default:
			return 0, fmt.Errorf("%w: %q", ErrConversion, s)
		}
	}
	return days*86400 + hours*3600 + minutes*60 + seconds, nil
}

func parseComponent(s string) (int64, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrConversion, s)
	}
	return int64(n), nil
}

// CPUTime parses the [D-][H:]M:S[.fff] format used by the sacct CPU-consumption fields
// (TotalCPU, UserCPU, SystemCPU, eg "00:09.522"), returning fractional seconds.  A bare
// number is taken to be seconds since these fields never default to minutes.
func CPUTime(s string) (float64, error) {
	var days int64
	rest := s
	if before, after, found := strings.Cut(rest, "-"); found {
		d, err := parseComponent(before)
		if err != nil {
			return 0, err
		}
		days = d
		rest = after
	}
	parts := strings.Split(rest, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrConversion, s)
	}
	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("%w: %q", ErrConversion, s)
	}
	var hours, minutes int64
	switch len(parts) {
	case 3:
		var e1, e2 error
		hours, e1 = parseComponent(parts[0])
		minutes, e2 = parseComponent(parts[1])
		if err := errors.Join(e1, e2); err != nil {
			return 0, err
		}
	case 2:
		minutes, err = parseComponent(parts[0])
		if err != nil {
			return 0, err
		}
	}
	return float64(days*86400+hours*3600+minutes*60) + seconds, nil
}

const slurmTimestampFormat = "2006-01-02T15:04:05"

// Unixtime parses a sacct timestamp.  sacct prints local time without a zone offset;
// collectors that forward the data sometimes reformat to RFC3339, so accept both.
func Unixtime(s string) (int64, error) {
	if t, err := time.ParseInLocation(slurmTimestampFormat, s, time.Local); err == nil {
		return t.Unix(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrConversion, s)
}

// SlurmTimestamp formats a Unix time the way sacct wants its -S and -E arguments.
func SlurmTimestamp(t int64) string {
	return time.Unix(t, 0).Local().Format(slurmTimestampFormat)
}
