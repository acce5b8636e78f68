package dsl

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	shape "github.com/reoring/shape"
)

// maxStringLength bounds numeric input given as text.
const maxStringLength = 1000

var numericOptions = []string{optMinValue, optMaxValue}

// IntegerField stores int64 values.
type IntegerField struct {
	*Base
	bounds bounds[int64]
}

// Integer returns a whole-number field.
func Integer(opts ...Option) *IntegerField {
	b, o := newBase("integer", opts, numericOptions...)
	b.declare(shape.CodeMaxValue, shape.CodeMinValue, shape.CodeMaxStringLength)
	f := &IntegerField{Base: b}
	f.bounds.min = boundOf(o.minValue, asInt64, "MinValue", b)
	f.bounds.max = boundOf(o.maxValue, asInt64, "MaxValue", b)
	b.finish()
	return f
}

// trailingZeros matches "12.000", which still counts as a whole number.
var trailingZeros = regexp.MustCompile(`\.0*\s*$`)

func (f *IntegerField) ToInternalValue(_ context.Context, data any) (any, error) {
	var n int64
	switch t := data.(type) {
	case string:
		if len(t) > maxStringLength {
			return nil, f.fail(shape.CodeMaxStringLength, nil)
		}
		v, err := strconv.ParseInt(trailingZeros.ReplaceAllString(strings.TrimSpace(t), ""), 10, 64)
		if err != nil {
			return nil, f.fail(shape.CodeInvalid, nil)
		}
		n = v
	default:
		v, ok := asInt64(data)
		if !ok {
			return nil, f.fail(shape.CodeInvalid, nil)
		}
		n = v
	}
	if code, limit := f.bounds.check(n); code != "" {
		return nil, f.fail(code, map[string]string{code: formatNumber(limit)})
	}
	return n, nil
}

func (f *IntegerField) ToRepresentation(_ context.Context, value any) (any, error) {
	if n, ok := asInt64(value); ok {
		return n, nil
	}
	if s, ok := value.(string); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	return nil, fmt.Errorf("dsl: cannot render %T as integer", value)
}

// FloatField stores float64 values.
type FloatField struct {
	*Base
	bounds bounds[float64]
}

// Float returns a floating point field. NaN and infinities are rejected.
func Float(opts ...Option) *FloatField {
	b, o := newBase("float", opts, numericOptions...)
	b.declare(shape.CodeMaxValue, shape.CodeMinValue, shape.CodeMaxStringLength)
	f := &FloatField{Base: b}
	f.bounds.min = boundOf(o.minValue, asFloat64, "MinValue", b)
	f.bounds.max = boundOf(o.maxValue, asFloat64, "MaxValue", b)
	b.finish()
	return f
}

func (f *FloatField) ToInternalValue(_ context.Context, data any) (any, error) {
	var x float64
	switch t := data.(type) {
	case string:
		if len(t) > maxStringLength {
			return nil, f.fail(shape.CodeMaxStringLength, nil)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, f.fail(shape.CodeInvalid, nil)
		}
		x = v
	default:
		v, ok := asFloat64(data)
		if !ok {
			return nil, f.fail(shape.CodeInvalid, nil)
		}
		x = v
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, f.fail(shape.CodeInvalid, nil)
	}
	if code, limit := f.bounds.check(x); code != "" {
		return nil, f.fail(code, map[string]string{code: formatNumber(limit)})
	}
	return x, nil
}

func (f *FloatField) ToRepresentation(_ context.Context, value any) (any, error) {
	if x, ok := asFloat64(value); ok {
		return x, nil
	}
	if s, ok := value.(string); ok {
		if x, err := strconv.ParseFloat(s, 64); err == nil {
			return x, nil
		}
	}
	return nil, fmt.Errorf("dsl: cannot render %T as float", value)
}

// Unlimited disables the digit limits of Decimal.
const Unlimited = -1

// DecimalField stores decimal.Decimal values with optional digit limits.
type DecimalField struct {
	*Base
	maxDigits     int
	decimalPlaces int
	min, max      *decimal.Decimal
	coerce        *bool
}

// Decimal returns a fixed-point field. maxDigits bounds the total number of digits and
// decimalPlaces the digits after the point; pass Unlimited to lift either limit.
func Decimal(maxDigits, decimalPlaces int, opts ...Option) *DecimalField {
	b, o := newBase("decimal", opts, optMinValue, optMaxValue, optCoerceToString)
	b.declare(shape.CodeMaxValue, shape.CodeMinValue, shape.CodeMaxDigits,
		shape.CodeDecimalPlaces, shape.CodeWholeDigits, shape.CodeMaxStringLength)
	f := &DecimalField{Base: b, maxDigits: maxDigits, decimalPlaces: decimalPlaces, coerce: o.coerceToString}
	if maxDigits >= 0 && decimalPlaces > maxDigits {
		b.errorf("decimal places %d exceed max digits %d", decimalPlaces, maxDigits)
	}
	f.min = decimalBound(o.minValue, "MinValue", b)
	f.max = decimalBound(o.maxValue, "MaxValue", b)
	b.finish()
	return f
}

func decimalBound(v any, name string, b *Base) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d, ok := toDecimal(v)
	if !ok {
		b.errorf("%s %v is not a number", name, v)
		return nil
	}
	return &d
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case *decimal.Decimal:
		if t == nil {
			return decimal.Decimal{}, false
		}
		return *t, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	}
	if n, ok := asInt64(v); ok {
		return decimal.NewFromInt(n), true
	}
	if x, ok := asFloat64(v); ok && !math.IsNaN(x) && !math.IsInf(x, 0) {
		return decimal.NewFromFloat(x), true
	}
	return decimal.Decimal{}, false
}

func (f *DecimalField) ToInternalValue(_ context.Context, data any) (any, error) {
	if s, ok := data.(string); ok && len(s) > maxStringLength {
		return nil, f.fail(shape.CodeMaxStringLength, nil)
	}
	if _, ok := data.(bool); ok {
		return nil, f.fail(shape.CodeInvalid, nil)
	}
	d, ok := toDecimal(data)
	if !ok {
		return nil, f.fail(shape.CodeInvalid, nil)
	}
	if err := f.checkDigits(d); err != nil {
		return nil, err
	}
	if f.max != nil && d.GreaterThan(*f.max) {
		return nil, f.fail(shape.CodeMaxValue, map[string]string{"max_value": f.max.String()})
	}
	if f.min != nil && d.LessThan(*f.min) {
		return nil, f.fail(shape.CodeMinValue, map[string]string{"min_value": f.min.String()})
	}
	return f.quantize(d), nil
}

// checkDigits counts total, whole and fractional digits the way the value was written:
// "1.50" has three digits and two decimal places.
func (f *DecimalField) checkDigits(d decimal.Decimal) error {
	coef := d.Coefficient()
	digits := len(coef.Abs(coef).String())
	exp := int(d.Exponent())
	var total, whole, places int
	switch {
	case exp >= 0:
		total = digits + exp
		whole = total
	case digits > -exp:
		total = digits
		places = -exp
		whole = total - places
	default:
		total = -exp
		places = total
	}
	if f.maxDigits >= 0 && total > f.maxDigits {
		return f.fail(shape.CodeMaxDigits, map[string]string{"max_digits": strconv.Itoa(f.maxDigits)})
	}
	if f.decimalPlaces >= 0 && places > f.decimalPlaces {
		return f.fail(shape.CodeDecimalPlaces, map[string]string{"max_decimal_places": strconv.Itoa(f.decimalPlaces)})
	}
	if f.maxDigits >= 0 && f.decimalPlaces >= 0 {
		maxWhole := f.maxDigits - f.decimalPlaces
		if whole > maxWhole {
			return f.fail(shape.CodeWholeDigits, map[string]string{"max_whole_digits": strconv.Itoa(maxWhole)})
		}
	}
	return nil
}

func (f *DecimalField) quantize(d decimal.Decimal) decimal.Decimal {
	if f.decimalPlaces < 0 {
		return d
	}
	return d.Round(int32(f.decimalPlaces))
}

func (f *DecimalField) ToRepresentation(ctx context.Context, value any) (any, error) {
	d, ok := toDecimal(value)
	if !ok {
		return nil, fmt.Errorf("dsl: cannot render %T as decimal", value)
	}
	var s string
	if f.decimalPlaces >= 0 {
		s = d.StringFixed(int32(f.decimalPlaces))
	} else {
		s = d.String()
	}
	coerce := shape.SettingsFrom(ctx).CoerceDecimalToString
	if f.coerce != nil {
		coerce = *f.coerce
	}
	if coerce {
		return s, nil
	}
	return json.Number(s), nil
}
