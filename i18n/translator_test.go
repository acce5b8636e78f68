package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	assert.Equal(t, "This field is required.", T("required", nil))

	SetLanguage("ja")
	defer SetLanguage("en")
	assert.Equal(t, "整数を入力してください。", T("integer.invalid", nil))
	// falls back to English for keys without a Japanese entry
	assert.Equal(t, "Must be a valid boolean.", T("boolean.invalid", nil))
}

func TestT_FallsBackToBareCode(t *testing.T) {
	assert.Equal(t, "This field may not be null.", T("decimal.null", nil))
	assert.Equal(t, "no.such.key", T("no.such.key", nil))
}

func TestT_FormatsPlaceholders(t *testing.T) {
	msg := T("char.max_length", map[string]string{"max_length": "100"})
	assert.Equal(t, "Ensure this field has no more than 100 characters.", msg)
}

type upper struct{}

func (upper) Message(key string, _ map[string]string) string {
	if key == "required" {
		return "REQUIRED"
	}
	return ""
}

func TestSetTranslator(t *testing.T) {
	SetTranslator(upper{})
	defer SetTranslator(nil)
	assert.Equal(t, "REQUIRED", T("char.required", nil))
}
