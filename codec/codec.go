// Package codec converts temporal values between their wire strings and Go types.
package codec

import (
	"errors"
	"strings"
	"time"
)

// Codec converts between a wire value W and a domain value D.
type Codec[W, D any] interface {
	Decode(w W) (D, error)
	Encode(d D) (W, error)
	// Formats names the accepted wire formats, for error messages.
	Formats() []string
}

// ISO8601 selects ISO-8601 parsing/formatting instead of a Go layout.
const ISO8601 = "iso-8601"

// ErrFormat is returned when a wire value matches none of the accepted formats.
var ErrFormat = errors.New("codec: value does not match any accepted format")

// ErrDateOnly is returned by DateTime when the input is a bare date.
var ErrDateOnly = errors.New("codec: expected a datetime but got a date")

var (
	isoDateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04",
	}
	isoTimeLayouts = []string{"15:04:05.999999999", "15:04"}
)

const (
	isoDateLayout     = "2006-01-02"
	isoDateTimeOutput = "2006-01-02T15:04:05.999999Z07:00"
	isoTimeOutput     = "15:04:05.999999"
)

// DateTime returns a codec for timestamps. Naive inputs are interpreted in loc (UTC when
// nil). output and inputs are Go layouts or ISO8601.
func DateTime(output string, inputs []string, loc *time.Location) Codec[string, time.Time] {
	if loc == nil {
		loc = time.UTC
	}
	return &timeCodec{kind: kindDateTime, output: output, inputs: defaultInputs(inputs), loc: loc}
}

// Date returns a codec for calendar dates.
func Date(output string, inputs []string) Codec[string, time.Time] {
	return &timeCodec{kind: kindDate, output: output, inputs: defaultInputs(inputs), loc: time.UTC}
}

// TimeOfDay returns a codec for wall-clock times. Decoded values are on 0000-01-01 UTC.
func TimeOfDay(output string, inputs []string) Codec[string, time.Time] {
	return &timeCodec{kind: kindTime, output: output, inputs: defaultInputs(inputs), loc: time.UTC}
}

func defaultInputs(in []string) []string {
	if len(in) == 0 {
		return []string{ISO8601}
	}
	return in
}

type timeKind int

const (
	kindDateTime timeKind = iota
	kindDate
	kindTime
)

type timeCodec struct {
	kind   timeKind
	output string
	inputs []string
	loc    *time.Location
}

func (c *timeCodec) Formats() []string {
	out := make([]string, len(c.inputs))
	for i, f := range c.inputs {
		if f == ISO8601 {
			out[i] = c.isoHint()
			continue
		}
		out[i] = f
	}
	return out
}

func (c *timeCodec) isoHint() string {
	switch c.kind {
	case kindDate:
		return "YYYY-MM-DD"
	case kindTime:
		return "hh:mm[:ss[.uuuuuu]]"
	default:
		return "YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]"
	}
}

func (c *timeCodec) Decode(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if c.kind == kindDateTime {
		if _, err := time.Parse(isoDateLayout, s); err == nil {
			return time.Time{}, ErrDateOnly
		}
	}
	for _, f := range c.inputs {
		layouts := []string{f}
		if f == ISO8601 {
			layouts = c.isoLayouts()
		}
		for _, l := range layouts {
			t, err := time.ParseInLocation(l, s, c.loc)
			if err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, ErrFormat
}

func (c *timeCodec) isoLayouts() []string {
	switch c.kind {
	case kindDate:
		return []string{isoDateLayout}
	case kindTime:
		return isoTimeLayouts
	default:
		return isoDateTimeLayouts
	}
}

func (c *timeCodec) Encode(t time.Time) (string, error) {
	if c.output != "" && c.output != ISO8601 {
		return t.Format(c.output), nil
	}
	switch c.kind {
	case kindDate:
		return t.Format(isoDateLayout), nil
	case kindTime:
		return t.Format(isoTimeOutput), nil
	default:
		return t.Format(isoDateTimeOutput), nil
	}
}
