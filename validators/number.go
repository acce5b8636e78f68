package validators

import (
	"reflect"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

func decimalOf[T Number](v T) decimal.Decimal {
	d, _ := toDecimal(v)
	return d
}

// toDecimal converts native, JSON and decimal numbers for exact comparison.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case bool, nil:
		return decimal.Decimal{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromUint64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(rv.Float()), true
	}
	return decimal.Decimal{}, false
}
