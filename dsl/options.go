package dsl

import (
	"context"

	shape "github.com/reoring/shape"
)

// Option configures a field at construction time. Options that do not apply to the field
// they are passed to are reported as configuration errors when the enclosing schema is built.
type Option func(*options)

// Option names, used to report misplaced options.
const (
	optSource        = "Source"
	optRequired      = "Required"
	optReadOnly      = "ReadOnly"
	optWriteOnly     = "WriteOnly"
	optAllowNull     = "AllowNull"
	optDefault       = "Default"
	optLabel         = "Label"
	optHelpText      = "HelpText"
	optValidators    = "Validators"
	optErrorMessages = "ErrorMessages"

	optAllowBlank     = "AllowBlank"
	optMaxLength      = "MaxLength"
	optMinLength      = "MinLength"
	optTrimWhitespace = "TrimWhitespace"
	optMaxValue       = "MaxValue"
	optMinValue       = "MinValue"
	optFormat         = "Format"
	optInputFormats   = "InputFormats"
	optUUIDFormat     = "UUIDFormat"
	optCoerceToString = "CoerceToString"
	optAllowEmpty     = "AllowEmpty"
	optQueryset       = "Queryset"
	optPKField        = "PKField"
	optLookupField    = "LookupField"
	optMany           = "Many"
	optWritable       = "Writable"
	optReverseWrites  = "ReverseWrites"
	optMatchOn        = "MatchOn"
	optAllowRemove    = "AllowRemove"
)

var commonOptions = map[string]bool{
	optSource: true, optRequired: true, optReadOnly: true, optWriteOnly: true,
	optAllowNull: true, optDefault: true, optLabel: true, optHelpText: true,
	optValidators: true, optErrorMessages: true,
}

type options struct {
	given []string

	source     *string
	required   *bool
	readOnly   bool
	writeOnly  bool
	allowNull  bool
	allowBlank bool
	hasDefault bool
	def        any
	defFunc    func(context.Context) (any, error)
	label      string
	helpText   string
	validators []shape.Validator
	messages   map[string]string

	maxLength      *int
	minLength      *int
	trim           *bool
	maxValue       any
	minValue       any
	format         *string
	inputFormats   []string
	uuidFormat     string
	coerceToString *bool
	allowEmpty     *bool
	queryset       shape.Queryset
	pkField        Field
	lookupField    string
	many           bool
	writable       bool
	reverseWriter  ReverseWriter
	matchOn        string
	allowRemove    bool
}

func (o *options) mark(name string) { o.given = append(o.given, name) }

func (o *options) has(name string) bool {
	for _, g := range o.given {
		if g == name {
			return true
		}
	}
	return false
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Source reads the value from a dotted attribute path instead of the field name. "*" passes
// the whole instance.
func Source(path string) Option {
	return func(o *options) { o.mark(optSource); o.source = &path }
}

// Required overrides whether the field must be present in input.
func Required(required bool) Option {
	return func(o *options) { o.mark(optRequired); o.required = &required }
}

// ReadOnly excludes the field from input; it only appears in representations.
func ReadOnly() Option {
	return func(o *options) { o.mark(optReadOnly); o.readOnly = true }
}

// WriteOnly excludes the field from representations.
func WriteOnly() Option {
	return func(o *options) { o.mark(optWriteOnly); o.writeOnly = true }
}

// AllowNull accepts null input and renders nil as null.
func AllowNull() Option {
	return func(o *options) { o.mark(optAllowNull); o.allowNull = true }
}

// AllowBlank accepts the empty string for string-like fields.
func AllowBlank() Option {
	return func(o *options) { o.mark(optAllowBlank); o.allowBlank = true }
}

// Default supplies v when the field is absent from input, and when the attribute is missing
// while rendering. It makes the field optional.
func Default(v any) Option {
	return func(o *options) { o.mark(optDefault); o.hasDefault = true; o.def = v; o.defFunc = nil }
}

// DefaultFunc is Default with a value computed per use.
func DefaultFunc(fn func(ctx context.Context) (any, error)) Option {
	return func(o *options) { o.mark(optDefault); o.hasDefault = true; o.def = nil; o.defFunc = fn }
}

func Label(s string) Option {
	return func(o *options) { o.mark(optLabel); o.label = s }
}

func HelpText(s string) Option {
	return func(o *options) { o.mark(optHelpText); o.helpText = s }
}

// Validators appends validators, run in order after conversion.
func Validators(vs ...shape.Validator) Option {
	return func(o *options) { o.mark(optValidators); o.validators = append(o.validators, vs...) }
}

// ErrorMessages overrides message templates per error kind. Naming a kind the field does not
// raise is a configuration error.
func ErrorMessages(m map[string]string) Option {
	return func(o *options) {
		o.mark(optErrorMessages)
		if o.messages == nil {
			o.messages = map[string]string{}
		}
		for k, v := range m {
			o.messages[k] = v
		}
	}
}

func MaxLength(n int) Option {
	return func(o *options) { o.mark(optMaxLength); o.maxLength = &n }
}

func MinLength(n int) Option {
	return func(o *options) { o.mark(optMinLength); o.minLength = &n }
}

// TrimWhitespace controls whether leading and trailing whitespace is stripped (default true).
func TrimWhitespace(trim bool) Option {
	return func(o *options) { o.mark(optTrimWhitespace); o.trim = &trim }
}

func MaxValue(v any) Option {
	return func(o *options) { o.mark(optMaxValue); o.maxValue = v }
}

func MinValue(v any) Option {
	return func(o *options) { o.mark(optMinValue); o.minValue = v }
}

// Format sets the output layout of temporal fields (a Go layout or shape.ISO8601).
func Format(layout string) Option {
	return func(o *options) { o.mark(optFormat); o.format = &layout }
}

// InputFormats sets the accepted input layouts of temporal fields.
func InputFormats(layouts ...string) Option {
	return func(o *options) { o.mark(optInputFormats); o.inputFormats = layouts }
}

// UUIDFormat selects the UUID rendering: "hex_verbose", "hex" or "urn".
func UUIDFormat(f string) Option {
	return func(o *options) { o.mark(optUUIDFormat); o.uuidFormat = f }
}

// CoerceToString renders decimals as strings rather than JSON numbers.
func CoerceToString(b bool) Option {
	return func(o *options) { o.mark(optCoerceToString); o.coerceToString = &b }
}

// AllowEmpty controls whether an empty collection is accepted.
func AllowEmpty(b bool) Option {
	return func(o *options) { o.mark(optAllowEmpty); o.allowEmpty = &b }
}

// Queryset sets the lookup collaborator of a related field.
func Queryset(q shape.Queryset) Option {
	return func(o *options) { o.mark(optQueryset); o.queryset = q }
}

// PKField converts primary keys through f in both directions.
func PKField(f Field) Option {
	return func(o *options) { o.mark(optPKField); o.pkField = f }
}

// LookupField names the attribute a related field identifies objects by.
func LookupField(attr string) Option {
	return func(o *options) { o.mark(optLookupField); o.lookupField = attr }
}

// Many turns a related field (or a deferred schema reference) into a list of them.
func Many() Option {
	return func(o *options) { o.mark(optMany); o.many = true }
}

// Writable makes a reverse relation accept input.
func Writable() Option {
	return func(o *options) { o.mark(optWritable); o.writable = true }
}

// ReverseWrites installs the writer that stores a writable reverse relation after save.
func ReverseWrites(w ReverseWriter) Option {
	return func(o *options) { o.mark(optReverseWrites); o.reverseWriter = w }
}

// MatchOn names the child field that identifies existing instances during bulk updates.
func MatchOn(field string) Option {
	return func(o *options) { o.mark(optMatchOn); o.matchOn = field }
}

// AllowRemove deletes instances that bulk update input no longer mentions.
func AllowRemove() Option {
	return func(o *options) { o.mark(optAllowRemove); o.allowRemove = true }
}
