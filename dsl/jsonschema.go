package dsl

import (
	"fmt"
	"strconv"

	js "github.com/reoring/shape/jsonschema"
)

// JSONSchema projects the schema onto a JSON Schema document describing its input and
// output. Referenced schemas land in $defs.
func (s *Schema) JSONSchema() (*js.Schema, error) {
	p := &projector{defs: map[string]*js.Schema{}}
	out, err := p.object(s)
	if err != nil {
		return nil, err
	}
	out.SchemaURI = js.Draft
	out.Title = s.name
	if len(p.defs) > 0 {
		out.Defs = p.defs
	}
	return out, nil
}

type projector struct {
	defs map[string]*js.Schema
}

func (p *projector) object(s *Schema) (*js.Schema, error) {
	out := &js.Schema{Type: "object", Properties: map[string]*js.Schema{}}
	for _, bf := range s.fields {
		fs, err := p.field(bf.field)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.name, bf.name, err)
		}
		if bf.readOnly {
			fs.ReadOnly = true
		}
		out.Properties[bf.name] = fs
		out.PropertyOrder = append(out.PropertyOrder, bf.name)
		if bf.required() {
			out.Required = append(out.Required, bf.name)
		}
	}
	return out, nil
}

// field describes one field, including the options every field shares.
func (p *projector) field(f Field) (*js.Schema, error) {
	out, err := p.fieldType(f)
	if err != nil {
		return nil, err
	}
	b := f.Spec()
	out.Title = b.Label()
	out.Description = b.HelpText()
	out.ReadOnly = out.ReadOnly || b.ReadOnly()
	out.WriteOnly = b.WriteOnly()
	if b.hasDefault && b.defFunc == nil {
		out.Default = b.def
	}
	if b.AllowNull() {
		out.Nullable()
	}
	return out, nil
}

func (p *projector) fieldType(f Field) (*js.Schema, error) {
	switch t := f.(type) {
	case *BooleanField:
		return &js.Schema{Type: "boolean"}, nil
	case *CharField:
		out := &js.Schema{Type: "string", MinLength: t.minLength, MaxLength: t.maxLength}
		switch t.typ {
		case "email":
			out.Format = "email"
		case "url":
			out.Format = "uri"
		case "ip":
			out.Format = "ip-address"
		case "slug":
			out.Pattern = slugPattern.String()
		}
		if !t.allowBlank && out.MinLength == nil {
			out.MinLength = js.Int(1)
		}
		return out, nil
	case *UUIDField:
		return &js.Schema{Type: "string", Format: "uuid"}, nil
	case *IntegerField:
		out := &js.Schema{Type: "integer"}
		if t.bounds.min != nil {
			out.Minimum = js.Number(strconv.FormatInt(*t.bounds.min, 10))
		}
		if t.bounds.max != nil {
			out.Maximum = js.Number(strconv.FormatInt(*t.bounds.max, 10))
		}
		return out, nil
	case *FloatField:
		out := &js.Schema{Type: "number"}
		if t.bounds.min != nil {
			out.Minimum = js.Number(formatNumber(*t.bounds.min))
		}
		if t.bounds.max != nil {
			out.Maximum = js.Number(formatNumber(*t.bounds.max))
		}
		return out, nil
	case *DecimalField:
		out := &js.Schema{Type: []string{"string", "number"}, Format: "decimal"}
		if t.min != nil {
			out.Minimum = js.Number(t.min.String())
		}
		if t.max != nil {
			out.Maximum = js.Number(t.max.String())
		}
		return out, nil
	case *TemporalField:
		switch t.kind {
		case kindDate:
			return &js.Schema{Type: "string", Format: "date"}, nil
		case kindTime:
			return &js.Schema{Type: "string", Format: "time"}, nil
		}
		return &js.Schema{Type: "string", Format: "date-time"}, nil
	case *DurationField:
		return &js.Schema{Type: "string", Format: "duration"}, nil
	case *ChoiceField:
		return &js.Schema{Enum: t.choices}, nil
	case *MultipleChoiceField:
		out := &js.Schema{Type: "array", Items: &js.Schema{Enum: t.choices}, UniqueItems: true}
		if !t.allowEmpty {
			out.MinItems = js.Int(1)
		}
		return out, nil
	case *ListField:
		items, err := p.field(t.child)
		if err != nil {
			return nil, err
		}
		return p.array(items, t.allowEmpty, t.minLength, t.maxLength), nil
	case *DictField:
		values, err := p.field(t.child)
		if err != nil {
			return nil, err
		}
		return &js.Schema{Type: "object", AdditionalProperties: values}, nil
	case *JSONField, *PassthroughField, *MethodField, *HiddenField, *StringRelatedField:
		return &js.Schema{}, nil
	case *PrimaryKeyRelatedField:
		if t.pkField != nil {
			return p.field(t.pkField)
		}
		return &js.Schema{Type: []string{"string", "integer"}}, nil
	case *SlugRelatedField:
		return &js.Schema{Type: "string"}, nil
	case *HyperlinkedRelatedField:
		return &js.Schema{Type: "string", Format: "uri-reference"}, nil
	case *ManyRelatedField:
		items, err := p.field(t.child)
		if err != nil {
			return nil, err
		}
		return p.array(items, t.allowEmpty, nil, nil), nil
	case *ReverseRelatedField:
		items, err := p.field(t.child)
		if err != nil {
			return nil, err
		}
		return p.array(items, t.allowEmpty, nil, nil), nil
	case *Schema:
		return p.object(t)
	case *ListSchema:
		items, err := p.object(t.child)
		if err != nil {
			return nil, err
		}
		return p.array(items, t.allowEmpty, t.minLength, t.maxLength), nil
	case *DeferredField:
		return p.deferred(t)
	}
	return &js.Schema{}, nil
}

func (p *projector) array(items *js.Schema, allowEmpty bool, minLength, maxLength *int) *js.Schema {
	out := &js.Schema{Type: "array", Items: items, MinItems: minLength, MaxItems: maxLength}
	if !allowEmpty && out.MinItems == nil {
		out.MinItems = js.Int(1)
	}
	return out
}

// deferred emits a $ref to the target schema so that recursive schemas terminate.
func (p *projector) deferred(d *DeferredField) (*js.Schema, error) {
	target, err := d.Target()
	if err != nil {
		return nil, err
	}
	var s *Schema
	list, isList := target.(*ListSchema)
	switch t := target.(type) {
	case *Schema:
		s = t
	case *ListSchema:
		s = t.child
	default:
		return p.fieldType(target)
	}
	if _, seen := p.defs[s.name]; !seen {
		p.defs[s.name] = &js.Schema{}
		obj, err := p.object(s)
		if err != nil {
			return nil, err
		}
		*p.defs[s.name] = *obj
	}
	ref := &js.Schema{Ref: "#/$defs/" + s.name}
	if isList {
		return p.array(ref, list.allowEmpty, list.minLength, list.maxLength), nil
	}
	return ref, nil
}
