// Package schemafile declares serializer schemas in YAML and compiles them into a
// dsl.Registry.
//
//	schemas:
//	  - name: Track
//	    fields:
//	      - {name: order, type: integer, min_value: 1}
//	      - {name: title, type: char, max_length: 100}
//	  - name: Album
//	    unknown: strict
//	    fields:
//	      - {name: album_name, type: char}
//	      - {name: tracks, type: Track, many: true}
//	    rules:
//	      - at_least_one: tracks
//	      - unique_by: {field: tracks, key: order}
//
// A field type is either a built-in kind (see Kinds) or the name of a schema, declared in the
// same file or already registered.
package schemafile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
	"github.com/reoring/shape/validators"
)

// File is a set of schema declarations, compiled in order.
type File struct {
	Schemas []Schema `yaml:"schemas"`
}

// Schema declares one serializer.
type Schema struct {
	Name           string   `yaml:"name"`
	Extends        []string `yaml:"extends"`
	Unknown        string   `yaml:"unknown"`
	Depth          int      `yaml:"depth"`
	Only           []string `yaml:"only"`
	Exclude        []string `yaml:"exclude"`
	ReadOnlyFields []string `yaml:"read_only_fields"`
	Fields         []Field  `yaml:"fields"`
	Rules          []Rule   `yaml:"rules"`
}

// Field declares one field. Options that do not apply to the kind are reported by the
// field's own configuration checks.
type Field struct {
	Name          string            `yaml:"name"`
	Type          string            `yaml:"type"`
	Source        string            `yaml:"source"`
	Required      *bool             `yaml:"required"`
	ReadOnly      bool              `yaml:"read_only"`
	WriteOnly     bool              `yaml:"write_only"`
	AllowNull     bool              `yaml:"allow_null"`
	AllowBlank    bool              `yaml:"allow_blank"`
	Default       yaml.Node         `yaml:"default"`
	Label         string            `yaml:"label"`
	HelpText      string            `yaml:"help_text"`
	MaxLength     *int              `yaml:"max_length"`
	MinLength     *int              `yaml:"min_length"`
	MaxValue      any               `yaml:"max_value"`
	MinValue      any               `yaml:"min_value"`
	MaxDigits     int               `yaml:"max_digits"`
	DecimalPlaces int               `yaml:"decimal_places"`
	Pattern       string            `yaml:"pattern"`
	Format        string            `yaml:"format"`
	InputFormats  []string          `yaml:"input_formats"`
	Choices       []any             `yaml:"choices"`
	Child         *Field            `yaml:"child"`
	Many          bool              `yaml:"many"`
	AllowEmpty    *bool             `yaml:"allow_empty"`
	ErrorMessages map[string]string `yaml:"error_messages"`
}

// Rule declares one object-level validator. Exactly one member is set.
type Rule struct {
	AtLeastOne string      `yaml:"at_least_one"`
	UniqueBy   *UniqueBy   `yaml:"unique_by"`
	RequiredIf *RequiredIf `yaml:"required_if"`
}

type UniqueBy struct {
	Field string `yaml:"field"`
	Key   string `yaml:"key"`
}

// RequiredIf requires the Then fields when the attribute at Field compares to Value.
type RequiredIf struct {
	Field string   `yaml:"field"`
	Op    string   `yaml:"op"`
	Value any      `yaml:"value"`
	Then  []string `yaml:"then"`
}

// Parse decodes a schema file.
func Parse(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	return &f, nil
}

// Load reads path and registers its schemas in r.
func Load(path string, r *dsl.Registry) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("schemafile: %w", err)
	}
	f, err := Parse(b)
	if err != nil {
		return err
	}
	return f.Register(r)
}

// Register builds every declared schema and adds it to r. Declaration errors are collected
// per schema ("Album") and per field ("Album.tracks"); schemas that built cleanly are
// registered even when others fail.
func (f *File) Register(r *dsl.Registry) error {
	var errs errsx.Map
	for i := range f.Schemas {
		d := &f.Schemas[i]
		if d.Name == "" {
			errs.Set(fmt.Sprintf("schemas[%d]", i), errors.New("missing name"))
			continue
		}
		s, err := d.build(r, &errs)
		if err != nil {
			errs.Set(d.Name, err)
			continue
		}
		if s == nil {
			continue
		}
		if err := r.Register(s); err != nil {
			errs.Set(d.Name, err)
		}
	}
	if errs.IsEmpty() {
		return nil
	}
	return fmt.Errorf("schemafile: %w", errs.AsError())
}

// build returns nil without error when field declarations failed; those are already in errs.
func (d *Schema) build(r *dsl.Registry, errs *errsx.Map) (*dsl.Schema, error) {
	b := dsl.Serializer(d.Name)
	for _, name := range d.Extends {
		parent, err := r.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("extends: %w", err)
		}
		b.Extends(parent)
	}
	switch strings.ToLower(d.Unknown) {
	case "", "ignore":
	case "strict":
		b.Unknown(shape.UnknownStrict)
	default:
		return nil, fmt.Errorf("unknown policy %q", d.Unknown)
	}
	if d.Depth > 0 {
		b.Depth(d.Depth)
	}
	failed := false
	for i := range d.Fields {
		fd := &d.Fields[i]
		f, err := fd.build(r)
		if err != nil {
			errs.Set(d.Name+"."+fd.Name, err)
			failed = true
			continue
		}
		b.Field(fd.Name, f)
	}
	if len(d.Only) > 0 {
		b.Only(d.Only...)
	}
	if len(d.Exclude) > 0 {
		b.Exclude(d.Exclude...)
	}
	if len(d.ReadOnlyFields) > 0 {
		b.ReadOnlyFields(d.ReadOnlyFields...)
	}
	var rules []shape.Validator
	for i, rd := range d.Rules {
		v, err := rd.validator()
		if err != nil {
			errs.Set(fmt.Sprintf("%s.rules[%d]", d.Name, i), err)
			failed = true
			continue
		}
		rules = append(rules, v)
	}
	if len(rules) > 0 {
		b.Validators(validators.All(rules...))
	}
	if failed {
		return nil, nil
	}
	return b.Build()
}

// Kinds lists the built-in field types.
var Kinds = []string{
	"boolean", "char", "email", "slug", "url", "ip", "regex", "uuid",
	"integer", "float", "decimal",
	"datetime", "date", "time", "duration",
	"choice", "multiple_choice", "list", "dict", "json", "read_only",
}

func (fd *Field) build(r *dsl.Registry) (dsl.Field, error) {
	if fd.Type == "" {
		return nil, errors.New("missing type")
	}
	o, err := fd.options()
	if err != nil {
		return nil, err
	}
	var f dsl.Field
	switch fd.Type {
	case "boolean":
		f = dsl.Boolean(o...)
	case "char":
		f = dsl.Char(o...)
	case "email":
		f = dsl.Email(o...)
	case "slug":
		f = dsl.Slug(o...)
	case "url":
		f = dsl.URL(o...)
	case "ip":
		f = dsl.IPAddress(o...)
	case "regex":
		f = dsl.Regex(fd.Pattern, o...)
	case "uuid":
		f = dsl.UUID(o...)
	case "integer":
		f = dsl.Integer(o...)
	case "float":
		f = dsl.Float(o...)
	case "decimal":
		f = dsl.Decimal(fd.MaxDigits, fd.DecimalPlaces, o...)
	case "datetime":
		f = dsl.DateTime(o...)
	case "date":
		f = dsl.Date(o...)
	case "time":
		f = dsl.Time(o...)
	case "duration":
		f = dsl.Duration(o...)
	case "choice":
		f = dsl.Choice(fd.Choices, o...)
	case "multiple_choice":
		f = dsl.MultipleChoice(fd.Choices, o...)
	case "json":
		f = dsl.JSON(o...)
	case "read_only":
		f = dsl.ReadOnlyField(o...)
	case "list", "dict":
		if fd.Child == nil {
			return nil, fmt.Errorf("%s requires a child", fd.Type)
		}
		child, err := fd.Child.build(r)
		if err != nil {
			return nil, fmt.Errorf("child: %w", err)
		}
		if fd.Type == "list" {
			f = dsl.List(child, o...)
		} else {
			f = dsl.Dict(child, o...)
		}
	default:
		// Schema references resolve on first use, so a file may declare schemas in any
		// order and refer to itself.
		f = r.Ref(fd.Type, o...)
	}
	if err := f.Spec().Err(); err != nil {
		return nil, err
	}
	return f, nil
}

func (fd *Field) options() ([]dsl.Option, error) {
	var opts []dsl.Option
	add := func(o dsl.Option) { opts = append(opts, o) }
	if fd.Source != "" {
		add(dsl.Source(fd.Source))
	}
	if fd.Required != nil {
		add(dsl.Required(*fd.Required))
	}
	if fd.ReadOnly {
		add(dsl.ReadOnly())
	}
	if fd.WriteOnly {
		add(dsl.WriteOnly())
	}
	if fd.AllowNull {
		add(dsl.AllowNull())
	}
	if fd.AllowBlank {
		add(dsl.AllowBlank())
	}
	if fd.Default.Kind != 0 {
		var v any
		if err := fd.Default.Decode(&v); err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		add(dsl.Default(v))
	}
	if fd.Label != "" {
		add(dsl.Label(fd.Label))
	}
	if fd.HelpText != "" {
		add(dsl.HelpText(fd.HelpText))
	}
	if fd.MaxLength != nil {
		add(dsl.MaxLength(*fd.MaxLength))
	}
	if fd.MinLength != nil {
		add(dsl.MinLength(*fd.MinLength))
	}
	if fd.MaxValue != nil {
		add(dsl.MaxValue(fd.MaxValue))
	}
	if fd.MinValue != nil {
		add(dsl.MinValue(fd.MinValue))
	}
	if fd.Format != "" {
		add(dsl.Format(fd.Format))
	}
	if len(fd.InputFormats) > 0 {
		add(dsl.InputFormats(fd.InputFormats...))
	}
	if fd.Many {
		add(dsl.Many())
	}
	if fd.AllowEmpty != nil {
		add(dsl.AllowEmpty(*fd.AllowEmpty))
	}
	if len(fd.ErrorMessages) > 0 {
		add(dsl.ErrorMessages(fd.ErrorMessages))
	}
	return opts, nil
}

func parseOp(s string) (validators.Op, bool) {
	switch strings.ToLower(s) {
	case "", "eq", "==":
		return validators.Eq, true
	case "ne", "!=":
		return validators.Ne, true
	case "lt", "<":
		return validators.Lt, true
	case "le", "<=":
		return validators.Le, true
	case "gt", ">":
		return validators.Gt, true
	case "ge", ">=":
		return validators.Ge, true
	}
	return 0, false
}

func (rd Rule) validator() (shape.Validator, error) {
	switch {
	case rd.AtLeastOne != "":
		return validators.AtLeastOne(rd.AtLeastOne), nil
	case rd.UniqueBy != nil:
		if rd.UniqueBy.Field == "" || rd.UniqueBy.Key == "" {
			return nil, errors.New("unique_by requires field and key")
		}
		return validators.UniqueBy(rd.UniqueBy.Field, rd.UniqueBy.Key), nil
	case rd.RequiredIf != nil:
		ri := rd.RequiredIf
		op, ok := parseOp(ri.Op)
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", ri.Op)
		}
		if ri.Field == "" || len(ri.Then) == 0 {
			return nil, errors.New("required_if requires field and then")
		}
		then := make([]shape.Validator, len(ri.Then))
		for i, name := range ri.Then {
			then[i] = validators.Required(name)
		}
		return validators.If(ri.Field, op, ri.Value).Then(then...), nil
	}
	return nil, errors.New("empty rule")
}
