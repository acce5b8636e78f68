package dsl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/codec"
)

type temporalKind int

const (
	kindDateTime temporalKind = iota
	kindDate
	kindTime
)

// TemporalField handles datetimes, dates and times of day as time.Time values.
type TemporalField struct {
	*Base
	kind         temporalKind
	format       *string
	inputFormats []string
}

func newTemporal(typ string, kind temporalKind, opts []Option) *TemporalField {
	b, o := newBase(typ, opts, optFormat, optInputFormats)
	f := &TemporalField{Base: b, kind: kind, format: o.format, inputFormats: o.inputFormats}
	switch kind {
	case kindDateTime:
		b.declare(shape.CodeDate)
	case kindDate:
		b.declare(shape.CodeDatetime)
	}
	b.finish()
	return f
}

// DateTime returns a timestamp field. Naive input is taken as UTC.
func DateTime(opts ...Option) *TemporalField { return newTemporal("datetime", kindDateTime, opts) }

// Date returns a calendar date field.
func Date(opts ...Option) *TemporalField { return newTemporal("date", kindDate, opts) }

// Time returns a time-of-day field.
func Time(opts ...Option) *TemporalField { return newTemporal("time", kindTime, opts) }

func (f *TemporalField) codec(ctx context.Context) codec.Codec[string, time.Time] {
	s := shape.SettingsFrom(ctx)
	var output string
	var inputs []string
	switch f.kind {
	case kindDate:
		output, inputs = s.DateFormat, s.DateInputFormats
	case kindTime:
		output, inputs = s.TimeFormat, s.TimeInputFormats
	default:
		output, inputs = s.DateTimeFormat, s.DateTimeInputFormats
	}
	if f.format != nil {
		output = *f.format
	}
	if f.inputFormats != nil {
		inputs = f.inputFormats
	}
	switch f.kind {
	case kindDate:
		return codec.Date(output, inputs)
	case kindTime:
		return codec.TimeOfDay(output, inputs)
	default:
		return codec.DateTime(output, inputs, time.UTC)
	}
}

func (f *TemporalField) ToInternalValue(ctx context.Context, data any) (any, error) {
	c := f.codec(ctx)
	switch t := data.(type) {
	case time.Time:
		switch f.kind {
		case kindDate:
			if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
				return nil, f.fail(shape.CodeDatetime, nil)
			}
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		case kindTime:
			return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
		return t, nil
	case string:
		v, err := c.Decode(t)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, codec.ErrDateOnly) {
			return nil, f.fail(shape.CodeDate, nil)
		}
		if f.kind == kindDate {
			// a datetime handed to a date field gets its own message
			if _, derr := codec.DateTime(shape.ISO8601, nil, nil).Decode(t); derr == nil {
				return nil, f.fail(shape.CodeDatetime, nil)
			}
		}
	}
	return nil, f.fail(shape.CodeInvalid, map[string]string{"format": strings.Join(c.Formats(), ", ")})
}

func (f *TemporalField) ToRepresentation(ctx context.Context, value any) (any, error) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		t = *v
	case string:
		return v, nil
	default:
		return nil, fmt.Errorf("dsl: cannot render %T as %s", value, f.typ)
	}
	return f.codec(ctx).Encode(t)
}

// DurationField stores time.Duration values.
type DurationField struct{ *Base }

// Duration returns a duration field accepting "[DD] [HH:[MM:]]ss[.uuuuuu]" and Go duration
// strings.
func Duration(opts ...Option) *DurationField {
	b, _ := newBase("duration", opts)
	b.finish()
	return &DurationField{Base: b}
}

func (f *DurationField) ToInternalValue(_ context.Context, data any) (any, error) {
	c := codec.Duration()
	switch t := data.(type) {
	case time.Duration:
		return t, nil
	case string:
		if d, err := c.Decode(t); err == nil {
			return d, nil
		}
	}
	return nil, f.fail(shape.CodeInvalid, map[string]string{"format": strings.Join(c.Formats(), ", ")})
}

func (f *DurationField) ToRepresentation(_ context.Context, value any) (any, error) {
	d, ok := value.(time.Duration)
	if !ok {
		return nil, fmt.Errorf("dsl: cannot render %T as duration", value)
	}
	return codec.Duration().Encode(d)
}
