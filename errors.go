package shape

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Error codes (kinds). Every field declares the subset it may raise.
const (
	CodeRequired         = "required"
	CodeNull             = "null"
	CodeBlank            = "blank"
	CodeInvalid          = "invalid"
	CodeInvalidChoice    = "invalid_choice"
	CodeDoesNotExist     = "does_not_exist"
	CodeIncorrectType    = "incorrect_type"
	CodeMaxLength        = "max_length"
	CodeMinLength        = "min_length"
	CodeMaxValue         = "max_value"
	CodeMinValue         = "min_value"
	CodeMaxDigits        = "max_digits"
	CodeDecimalPlaces    = "max_decimal_places"
	CodeWholeDigits      = "max_whole_digits"
	CodeMaxStringLength  = "max_string_length"
	CodeNotAList         = "not_a_list"
	CodeNotADict         = "not_a_dict"
	CodeEmpty            = "empty"
	CodeUnique           = "unique"
	CodeNoMatch          = "no_match"
	CodeIncorrectMatch   = "incorrect_match"
	CodeDate             = "date"
	CodeDatetime         = "datetime"
	CodeUnknownField     = "unknown_field"
	CodeDuplicateKey     = "duplicate_key"
	CodeParseError       = "parse_error"
	CodeTruncated        = "truncated"
	CodeOverflow         = "overflow"
	CodeInvalidFormat    = "invalid_format"
	CodeNotImplemented   = "not_implemented"
	CodeIncorrectPattern = "incorrect_pattern"
)

// NonFieldErrors is the default reserved key for errors not attributable to one field.
const NonFieldErrors = "non_field_errors"

// ErrorNode is one node of an error tree. It is one of ErrorList, ErrorDict or ErrorArray.
type ErrorNode interface {
	// Empty reports whether the node carries no message at any depth.
	Empty() bool
	// Primitive converts the node into plain data ([]string, map[string]any, []any).
	Primitive() any
	errorNode()
}

// ErrorDetail is a single message together with the code that produced it.
type ErrorDetail struct {
	Code    string
	Message string
}

func (d ErrorDetail) String() string { return d.Message }

// MarshalJSON renders the detail as its bare message.
func (d ErrorDetail) MarshalJSON() ([]byte, error) { return json.Marshal(d.Message) }

// ErrorList is the leaf of an error tree: the messages raised for one value.
type ErrorList []ErrorDetail

// ErrorDict maps field names to nested error nodes.
type ErrorDict map[string]ErrorNode

// ErrorArray is positionally aligned with a list input. Valid positions hold an empty ErrorDict.
type ErrorArray []ErrorNode

func (ErrorList) errorNode()  {}
func (ErrorDict) errorNode()  {}
func (ErrorArray) errorNode() {}

func (l ErrorList) Empty() bool { return len(l) == 0 }

func (d ErrorDict) Empty() bool {
	for _, n := range d {
		if n != nil && !n.Empty() {
			return false
		}
	}
	return true
}

func (a ErrorArray) Empty() bool {
	for _, n := range a {
		if n != nil && !n.Empty() {
			return false
		}
	}
	return true
}

func (l ErrorList) Primitive() any {
	out := make([]string, len(l))
	for i, d := range l {
		out[i] = d.Message
	}
	return out
}

func (d ErrorDict) Primitive() any {
	out := make(map[string]any, len(d))
	for k, n := range d {
		if n == nil {
			continue
		}
		out[k] = n.Primitive()
	}
	return out
}

func (a ErrorArray) Primitive() any {
	out := make([]any, len(a))
	for i, n := range a {
		if n == nil {
			out[i] = map[string]any{}
			continue
		}
		out[i] = n.Primitive()
	}
	return out
}

// Codes returns the codes of the list in order.
func (l ErrorList) Codes() []string {
	out := make([]string, len(l))
	for i, d := range l {
		out[i] = d.Code
	}
	return out
}

// ValidationError carries an error tree. It is the only error the engine returns for bad input.
type ValidationError struct {
	Detail ErrorNode
}

// NewError builds a ValidationError holding a single message.
func NewError(code, message string) *ValidationError {
	return &ValidationError{Detail: ErrorList{{Code: code, Message: message}}}
}

// NewErrorList builds a ValidationError from several details raised for the same value.
func NewErrorList(details ...ErrorDetail) *ValidationError {
	return &ValidationError{Detail: ErrorList(details)}
}

// NewFieldError attaches a message to a named field, for object-level hooks that want to
// point at one field instead of non_field_errors.
func NewFieldError(field, code, message string) *ValidationError {
	return &ValidationError{Detail: ErrorDict{field: ErrorList{{Code: code, Message: message}}}}
}

// Error summarizes the first few issues.
func (e *ValidationError) Error() string {
	if e == nil || e.Detail == nil {
		return "validation error"
	}
	return e.Issues().Error()
}

// Primitive returns the plain error tree.
func (e *ValidationError) Primitive() any {
	if e == nil || e.Detail == nil {
		return nil
	}
	return e.Detail.Primitive()
}

// MarshalJSON renders the error tree.
func (e *ValidationError) MarshalJSON() ([]byte, error) { return json.Marshal(e.Primitive()) }

// Issues flattens the tree into JSON-pointer addressed issues, sorted by path.
func (e *ValidationError) Issues() Issues {
	if e == nil || e.Detail == nil {
		return nil
	}
	var out Issues
	flattenNode("", e.Detail, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func flattenNode(base string, n ErrorNode, out *Issues) {
	switch t := n.(type) {
	case ErrorList:
		p := base
		if p == "" {
			p = "/"
		}
		for _, d := range t {
			*out = append(*out, Issue{Path: p, Code: d.Code, Message: d.Message})
		}
	case ErrorDict:
		for k, child := range t {
			if child == nil {
				continue
			}
			flattenNode(base+"/"+escapePointer(k), child, out)
		}
	case ErrorArray:
		for i, child := range t {
			if child == nil {
				continue
			}
			flattenNode(base+"/"+strconv.Itoa(i), child, out)
		}
	}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(s string) string { return pointerEscaper.Replace(s) }

// AsValidationError extracts a ValidationError from err using errors.As.
func AsValidationError(err error) (*ValidationError, bool) {
	if err == nil {
		return nil, false
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Issue is a flattened view of one message in an error tree.
type Issue struct {
	Path    string `json:"path"` // JSON Pointer (for example: /tracks/2/duration).
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Issues is a collection of flattened issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", iss[i].Code, iss[i].Path)
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// ConfigError reports a schema that was declared inconsistently. It is returned from
// build steps and never from validation.
type ConfigError struct {
	Schema string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("shape: invalid declaration of %q: %v", e.Schema, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ErrNotFound is returned by lookup collaborators when no candidate matches.
var ErrNotFound = errors.New("shape: object not found")

// ErrMultipleFound is returned by lookup collaborators when more than one candidate matches.
var ErrMultipleFound = errors.New("shape: multiple objects found")
