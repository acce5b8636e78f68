package shape

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// JSONDocument exposes raw JSON as an instance: source paths are answered by gjson lookups
// without decoding the whole document up front. It also satisfies Mapping, so documents can
// be fed back as input.
type JSONDocument struct {
	res gjson.Result
}

// ErrInvalidJSON is returned by ParseJSONDocument for malformed input.
var ErrInvalidJSON = errors.New("shape: invalid JSON document")

// ParseJSONDocument validates b and wraps it.
func ParseJSONDocument(b []byte) (*JSONDocument, error) {
	if !gjson.ValidBytes(b) {
		return nil, ErrInvalidJSON
	}
	return &JSONDocument{res: gjson.ParseBytes(b)}, nil
}

var gjsonEscaper = strings.NewReplacer(
	`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`,
)

// Get returns the member named key. Objects come back as *JSONDocument, arrays as []any.
func (d *JSONDocument) Get(key string) (any, bool) {
	if d == nil || !d.res.IsObject() {
		return nil, false
	}
	r := d.res.Get(gjsonEscaper.Replace(key))
	if !r.Exists() {
		return nil, false
	}
	return fromResult(r), true
}

// Keys returns member names in document order.
func (d *JSONDocument) Keys() []string {
	if d == nil || !d.res.IsObject() {
		return nil
	}
	var keys []string
	d.res.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// Raw returns the JSON text of the document.
func (d *JSONDocument) Raw() string { return d.res.Raw }

func fromResult(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.String:
		return r.String()
	}
	if r.IsArray() {
		arr := r.Array()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = fromResult(e)
		}
		return out
	}
	return &JSONDocument{res: r}
}
