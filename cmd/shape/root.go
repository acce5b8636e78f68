package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	shape "github.com/reoring/shape"
	"github.com/reoring/shape/dsl"
	"github.com/reoring/shape/i18n"
	"github.com/reoring/shape/schemafile"
)

// errInvalid reports that input failed validation; the error tree is already printed.
var errInvalid = errors.New("input is invalid")

type rootOptions struct {
	schemas  string
	settings string
	language string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "shape",
		Short:         "Validate and render data against declarative serializer schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := cmd.PersistentFlags()
	f.StringVar(&o.schemas, "schemas", os.Getenv("SHAPE_SCHEMAS"), "YAML schema file")
	f.StringVar(&o.settings, "settings", os.Getenv("SHAPE_SETTINGS"), "YAML settings file")
	f.StringVar(&o.language, "language", "", "message language (en, ja)")

	cmd.AddCommand(
		newValidateCmd(o),
		newRenderCmd(o),
		newSchemaCmd(o),
		newListCmd(o),
	)
	return cmd
}

// load resolves settings and the schema registry and attaches the settings to ctx.
func (o *rootOptions) load(ctx context.Context) (context.Context, *dsl.Registry, error) {
	st := shape.DefaultSettings()
	if o.settings != "" {
		var err error
		if st, err = shape.LoadSettings(o.settings); err != nil {
			return nil, nil, err
		}
	}
	if err := applyEnv(&st, os.LookupEnv); err != nil {
		return nil, nil, err
	}
	if o.language != "" {
		st.Language = o.language
	}
	i18n.SetLanguage(st.Language)

	if o.schemas == "" {
		return nil, nil, errors.New("no schema file: pass --schemas or set SHAPE_SCHEMAS")
	}
	r := dsl.NewRegistry(dsl.RegistryLogger(*zerolog.Ctx(ctx)))
	if err := schemafile.Load(o.schemas, r); err != nil {
		return nil, nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("file", o.schemas).Strs("schemas", r.Names()).Msg("schemas loaded")
	return shape.WithSettings(ctx, st), r, nil
}

// applyEnv overrides settings from SHAPE_* variables.
func applyEnv(st *shape.Settings, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SHAPE_NON_FIELD_ERRORS_KEY": &st.NonFieldErrorsKey,
		"SHAPE_DATETIME_FORMAT":      &st.DateTimeFormat,
		"SHAPE_DATE_FORMAT":          &st.DateFormat,
		"SHAPE_TIME_FORMAT":          &st.TimeFormat,
		"SHAPE_UUID_FORMAT":          &st.UUIDFormat,
		"SHAPE_LANGUAGE":             &st.Language,
	}
	for k, p := range strs {
		if v, ok := lookup(k); ok && v != "" {
			*p = v
		}
	}
	if v, ok := lookup("SHAPE_COERCE_DECIMAL_TO_STRING"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SHAPE_COERCE_DECIMAL_TO_STRING: %w", err)
		}
		st.CoerceDecimalToString = b
	}
	if v, ok := lookup("SHAPE_MAX_DEPTH"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHAPE_MAX_DEPTH: %w", err)
		}
		st.MaxDepth = n
	}
	return nil
}

// readSource reads the input named by args (stdin when absent or "-"). YAML files are
// recognized by extension.
func readSource(cmd *cobra.Command, args []string) (shape.Source, error) {
	if len(args) == 0 || args[0] == "-" {
		return shape.JSONReader(cmd.InOrStdin()), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".yaml", ".yml":
		return shape.YAMLBytes(b), nil
	}
	return shape.JSONBytes(b), nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
