// Package dsl declares serializer schemas: typed fields composed into objects that render
// in-memory instances as primitive data and validate untrusted input into native values.
//
// Overview
//   - Fields: Boolean/Char/Email/Regex/Slug/URL/UUID/IPAddress, Integer/Float/Decimal,
//     DateTime/Date/Time/Duration, Choice/MultipleChoice, List/Dict/JSON, ReadOnlyField,
//     Hidden and Method. Every field takes Options (Source, Required, ReadOnly, AllowNull,
//     Default, Validators, ErrorMessages, ...); options that do not apply are reported when
//     the enclosing schema is built.
//   - Relations: PrimaryKeyRelated, SlugRelated, HyperlinkedRelated, HyperlinkedIdentity,
//     StringRelated (Many() turns any of them into a list) and ReverseRelated. Lookups go
//     through a shape.Queryset, links through a shape.Locator.
//   - Schemas: Serializer(name).Field(...).Build() returns an immutable *Schema. A Schema is
//     a Field, so schemas nest; Many() wraps one into a *ListSchema.
//   - Instances: schema.New(WithInstance(v)) renders, schema.New(WithData(d)) validates and
//     saves. Results are memoized per instance.
//   - Registry: Register/Ref resolve schemas by name, Lazy defers construction, which
//     allows recursive schemas.
//
// Quickstart
//
//	track := dsl.Serializer("Track").
//		Field("title", dsl.Char(dsl.MaxLength(100))).
//		Field("duration", dsl.Integer(dsl.MinValue(0))).
//		MustBuild()
//	album := dsl.Serializer("Album").
//		Field("name", dsl.Char()).
//		Field("tracks", track.Many()).
//		MustBuild()
//
//	s := album.New(dsl.WithData(input))
//	if !s.IsValid(ctx) {
//		return s.Errors() // {"tracks": [{}, {"duration": ["Enter a whole number."]}]}
//	}
//	saved, err := s.Save(ctx, nil)
//
// File layout (roles)
//   - field.go/options.go: Base descriptor, options, empty-value policy and validators.
//   - scalar.go/numeric.go/temporal.go/choice.go/composite.go: the field catalogue.
//   - related.go: relations and their lookup/locator collaborators.
//   - schema.go/validate.go/render.go: builder, deserialization and serialization.
//   - serializer.go/list.go: instance lifecycle, persistence and bulk updates.
//   - registry.go: named schemas and deferred references.
//   - jsonschema.go: JSON Schema projection.
//
// Error trees
//
// Validation failures are *shape.ValidationError values. Field errors are keyed by field
// name, list errors align with the input (valid items hold an empty dict), and
// object-level errors use the non-field key (default "non_field_errors").
package dsl
