package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized message templates for error keys. Keys are either a bare
// code ("required") or a field-qualified code ("integer.invalid"). data fills "{name}"
// placeholders. Implementations return "" for keys they do not know.
type Translator interface {
	Message(key string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(key string, data map[string]string) string {
	tmpl := ""
	if t.lang == "ja" {
		tmpl = ja[key]
	}
	if tmpl == "" {
		tmpl = en[key]
	}
	return Format(tmpl, data)
}

var (
	currentMu         sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation. nil restores the English dictionary.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	currentMu.Lock()
	currentTranslator = tr
	currentMu.Unlock()
}

// T fetches the message for key. Unknown field-qualified keys fall back to the bare code
// ("decimal.required" -> "required"); unknown codes render as the key itself.
func T(key string, data map[string]string) string {
	currentMu.RLock()
	tr := currentTranslator
	currentMu.RUnlock()
	if msg := tr.Message(key, data); msg != "" {
		return msg
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		if msg := tr.Message(key[i+1:], data); msg != "" {
			return msg
		}
	}
	return key
}

// Has reports whether the built-in English dictionary knows key.
func Has(key string) bool {
	_, ok := en[key]
	return ok
}

// Format substitutes "{name}" placeholders in tmpl.
func Format(tmpl string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
