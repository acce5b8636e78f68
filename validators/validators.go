// Package validators provides reusable shape.Validator implementations: value and length
// limits, pattern checks, uniqueness against a queryset, and object-level rules over
// validated attributes.
//
// Field-level validators receive the converted value of one field:
//
//	dsl.Char(dsl.Validators(validators.MaxLength(20), validators.Regex(`^[a-z]+$`, "")))
//
// Object-level validators receive the validated attributes as a map[string]any and are
// attached with Builder.Validators:
//
//	dsl.Serializer("Order").
//		Field("items", ...).
//		Validators(
//			validators.AtLeastOne("items"),
//			validators.UniqueBy("items", "sku"),
//			validators.If("status", validators.Eq, "shipped").Then(validators.Required("tracking")),
//		)
package validators

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"unicode/utf8"

	"golang.org/x/exp/constraints"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/i18n"
)

// Number is the set of native limits accepted by MaxValue and MinValue.
type Number interface {
	constraints.Integer | constraints.Float
}

func fail(code string, data map[string]string) *shape.ValidationError {
	return shape.NewError(code, i18n.T("validators."+code, data))
}

// length measures strings in runes and collections in elements.
func length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// MaxLength limits strings (in characters) and collections (in elements).
func MaxLength(n int) shape.Validator {
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		l, ok := length(v)
		if !ok || l <= n {
			return nil
		}
		return fail(shape.CodeMaxLength, map[string]string{"limit_value": strconv.Itoa(n), "show_value": strconv.Itoa(l)})
	})
}

// MinLength is the lower counterpart of MaxLength.
func MinLength(n int) shape.Validator {
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		l, ok := length(v)
		if !ok || l >= n {
			return nil
		}
		return fail(shape.CodeMinLength, map[string]string{"limit_value": strconv.Itoa(n), "show_value": strconv.Itoa(l)})
	})
}

// MaxValue rejects numbers above limit. Values that are not numbers pass; the field decides
// what is a number.
func MaxValue[T Number](limit T) shape.Validator {
	lim := decimalOf(limit)
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		d, ok := toDecimal(v)
		if !ok || !d.GreaterThan(lim) {
			return nil
		}
		return fail(shape.CodeMaxValue, map[string]string{"limit_value": fmt.Sprint(limit)})
	})
}

// MinValue rejects numbers below limit.
func MinValue[T Number](limit T) shape.Validator {
	lim := decimalOf(limit)
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		d, ok := toDecimal(v)
		if !ok || !d.LessThan(lim) {
			return nil
		}
		return fail(shape.CodeMinValue, map[string]string{"limit_value": fmt.Sprint(limit)})
	})
}

// Regex requires string values to match pattern. message replaces the default text when
// not empty. An invalid pattern panics, like regexp.MustCompile.
func Regex(pattern, message string) shape.Validator {
	return match(regexp.MustCompile(pattern), message, false)
}

// NotRegex rejects string values that match pattern.
func NotRegex(pattern, message string) shape.Validator {
	return match(regexp.MustCompile(pattern), message, true)
}

func match(re *regexp.Regexp, message string, inverse bool) shape.Validator {
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if re.MatchString(s) != inverse {
			return nil
		}
		if message != "" {
			return shape.NewError(shape.CodeInvalid, message)
		}
		return fail("regex", nil)
	})
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s.]+(\.[^@\s.]+)+$`)

// Email accepts e-mail addresses. Non-string values pass.
func Email() shape.Validator {
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		s, ok := v.(string)
		if !ok || emailPattern.MatchString(s) {
			return nil
		}
		return shape.NewError(shape.CodeInvalid, i18n.T("email.invalid", nil))
	})
}

// URL accepts absolute URLs whose scheme is one of schemes (http and https by default).
func URL(schemes ...string) shape.Validator {
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	return shape.ValidatorFunc(func(_ context.Context, v any) error {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if u, err := url.ParseRequestURI(s); err == nil && u.Host != "" {
			for _, sc := range schemes {
				if u.Scheme == sc {
					return nil
				}
			}
		}
		return shape.NewError(shape.CodeInvalid, i18n.T("url.invalid", nil))
	})
}
