package main

import (
	"fmt"

	"github.com/spf13/cobra"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
	"github.com/reoring/shape/jsonschema"
)

func newValidateCmd(o *rootOptions) *cobra.Command {
	var partial, issues bool
	cmd := &cobra.Command{
		Use:   "validate SCHEMA [FILE]",
		Short: "Validate input and print its representation, or the errors",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, r, err := o.load(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := r.Lookup(args[0])
			if err != nil {
				return err
			}
			src, err := readSource(cmd, args[1:])
			if err != nil {
				return err
			}
			opts := []dsl.InstanceOption{dsl.WithSource(src)}
			if partial {
				opts = append(opts, dsl.Partial())
			}
			s := schema.New(opts...)
			validated, err := s.Validate(ctx)
			if err != nil {
				ve, ok := shape.AsValidationError(err)
				if !ok {
					return err
				}
				if issues {
					err = writeJSON(cmd.OutOrStdout(), ve.Issues())
				} else {
					err = writeJSON(cmd.OutOrStdout(), ve)
				}
				if err != nil {
					return err
				}
				return errInvalid
			}
			if partial {
				// absent required fields cannot be rendered
				return writeJSON(cmd.OutOrStdout(), validated)
			}
			data, err := s.Data(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().BoolVar(&partial, "partial", false, "skip required checks and defaults for absent fields")
	cmd.Flags().BoolVar(&issues, "issues", false, "print errors as a flat list of JSON pointer issues")
	return cmd
}

func newRenderCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render SCHEMA [FILE]",
		Short: "Render a stored instance through a schema",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, r, err := o.load(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := r.Lookup(args[0])
			if err != nil {
				return err
			}
			src, err := readSource(cmd, args[1:])
			if err != nil {
				return err
			}
			instance, err := src.Decode(ctx)
			if err != nil {
				return err
			}
			data, err := schema.New(dsl.WithInstance(instance)).Data(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), data)
		},
	}
}

func newSchemaCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema SCHEMA",
		Short: "Print the JSON Schema of a declared schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := o.load(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := r.Lookup(args[0])
			if err != nil {
				return err
			}
			doc, err := schema.JSONSchema()
			if err != nil {
				return err
			}
			b, err := jsonschema.Marshal(doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b)
			return err
		},
	}
}

func newListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the declared schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, r, err := o.load(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range r.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
