package shape

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownPolicy controls how input keys that match no declared field are handled.
type UnknownPolicy int

const (
	UnknownIgnore UnknownPolicy = iota // Drop unknown keys silently.
	UnknownStrict                      // Report unknown keys as field errors.
)

// Severity expresses the severity level for input enforcement findings.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// UnmarshalYAML accepts "ignore", "warn" and "error".
func (s *Severity) UnmarshalYAML(n *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(n.Value)) {
	case "", "ignore":
		*s = Ignore
	case "warn":
		*s = Warn
	case "error":
		*s = Error
	default:
		return fmt.Errorf("unknown severity %q", n.Value)
	}
	return nil
}

// Settings are the engine-wide knobs. The zero value is not useful; start from DefaultSettings.
type Settings struct {
	NonFieldErrorsKey     string `yaml:"non_field_errors_key"`
	CoerceDecimalToString bool   `yaml:"coerce_decimal_to_string"`
	// Output formats use Go layouts or "iso-8601".
	DateTimeFormat string `yaml:"datetime_format"`
	DateFormat     string `yaml:"date_format"`
	TimeFormat     string `yaml:"time_format"`
	// Input formats accepted when a field declares none of its own.
	DateTimeInputFormats []string `yaml:"datetime_input_formats"`
	DateInputFormats     []string `yaml:"date_input_formats"`
	TimeInputFormats     []string `yaml:"time_input_formats"`
	// UUIDFormat is one of "hex_verbose", "hex", "urn".
	UUIDFormat string `yaml:"uuid_format"`
	// MaxDepth bounds nested serializer rendering; deeper levels render shallowly. 0 = unbounded.
	MaxDepth int           `yaml:"max_depth"`
	Language string        `yaml:"language"`
	Input    InputSettings `yaml:"input"`
}

// InputSettings configure decoding of raw JSON/YAML input.
type InputSettings struct {
	OnDuplicateKey Severity `yaml:"on_duplicate_key"`
	MaxDepth       int      `yaml:"max_depth"`
	MaxBytes       int64    `yaml:"max_bytes"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		NonFieldErrorsKey:     NonFieldErrors,
		CoerceDecimalToString: true,
		DateTimeFormat:        ISO8601,
		DateFormat:            ISO8601,
		TimeFormat:            ISO8601,
		DateTimeInputFormats:  []string{ISO8601},
		DateInputFormats:      []string{ISO8601},
		TimeInputFormats:      []string{ISO8601},
		UUIDFormat:            "hex_verbose",
		Language:              "en",
	}
}

// ISO8601 selects the ISO-8601 wire format for temporal fields.
const ISO8601 = "iso-8601"

// LoadSettings reads a YAML settings file on top of DefaultSettings.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if s.NonFieldErrorsKey == "" {
		s.NonFieldErrorsKey = NonFieldErrors
	}
	return s, nil
}

type settingsKey struct{}

// WithSettings returns a child context carrying s.
func WithSettings(ctx context.Context, s Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

// SettingsFrom returns the settings attached to ctx, or DefaultSettings.
func SettingsFrom(ctx context.Context) Settings {
	if s, ok := ctx.Value(settingsKey{}).(Settings); ok {
		return s
	}
	return defaultSettings
}

var defaultSettings = DefaultSettings()
