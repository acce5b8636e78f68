// Package shape is the core of a declarative serialization and validation engine.
//
// It holds what every layer shares:
//
// - The error model: ErrorList, ErrorDict and ErrorArray trees carried by ValidationError,
// flattened to JSON-pointer Issues on demand
// - Input sources (JSON, YAML, form values) with duplicate-key and depth enforcement
// - OrderedMap for renderings, and attribute resolution over structs, maps and Getters
// - Collaborator contracts (Validator, Queryset, Locator, Persister) and Settings
//
// Schemas are declared with package dsl, reusable validators live in validators/, and the
// CLI is under cmd/shape.
//
// Typical usage:
//
//	albums := dsl.Serializer("Album").
//		Field("album_name", dsl.Char(dsl.MaxLength(100))).
//		Field("tracks", tracks.Many()).
//		MustBuild()
//
//	s := albums.New(dsl.WithSource(shape.JSONBytes(body)))
//	if _, err := s.Validate(ctx); err != nil {
//		ve, _ := shape.AsValidationError(err)
//		return ve.Issues()
//	}
//	album, err := s.Save(ctx, nil)
package shape
