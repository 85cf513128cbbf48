// Package i18n provides message catalogs and request language negotiation
// for the marketplace. Editable per-language TOML files live in the locales
// directory; the server loads the compiled form produced by the i18n compile
// command.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
)

// Catalog holds translated messages for all supported languages. It is
// immutable after loading and safe for concurrent use.
type Catalog struct {
	defaultLang string
	messages    map[string]map[string]string
}

// LoadCatalog reads compiled <lang>.json files for every supported language
// from catalogDir. A missing file for the default language is an error;
// other languages fall back to the default at lookup time.
func LoadCatalog(catalogDir, defaultLang string, supported []string) (*Catalog, error) {
	if defaultLang == "" {
		return nil, fmt.Errorf("default language is required")
	}
	if _, err := language.Parse(defaultLang); err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}

	c := &Catalog{
		defaultLang: defaultLang,
		messages:    make(map[string]map[string]string, len(supported)),
	}

	for _, lang := range supported {
		path := filepath.Join(catalogDir, lang+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) && lang != defaultLang {
				continue
			}
			return nil, fmt.Errorf("read catalog for %s: %w", lang, err)
		}

		var msgs map[string]string
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parse catalog for %s: %w", lang, err)
		}
		c.messages[lang] = msgs
	}

	if _, ok := c.messages[defaultLang]; !ok {
		return nil, fmt.Errorf("compiled catalog for default language %s not found in %s", defaultLang, catalogDir)
	}

	return c, nil
}

// LoadOrCompileCatalog loads the compiled catalog from catalogDir, first
// compiling the TOML locale files from localesDir when the default-language
// compiled file is not there yet. This lets the server boot from a checkout
// or image that ships only the editable locale files.
func LoadOrCompileCatalog(localesDir, catalogDir, defaultLang string, supported []string) (*Catalog, error) {
	if defaultLang == "" {
		return nil, fmt.Errorf("default language is required")
	}
	if _, err := os.Stat(filepath.Join(catalogDir, defaultLang+".json")); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat compiled catalog: %w", err)
		}
		if _, err := CompileLocales(localesDir, catalogDir); err != nil {
			return nil, fmt.Errorf("compile locale files: %w", err)
		}
	}
	return LoadCatalog(catalogDir, defaultLang, supported)
}

// NewStaticCatalog builds a catalog directly from in-memory messages.
// Used in tests and as a minimal fallback when no compiled catalog exists.
func NewStaticCatalog(defaultLang string, messages map[string]map[string]string) *Catalog {
	if messages == nil {
		messages = map[string]map[string]string{}
	}
	if _, ok := messages[defaultLang]; !ok {
		messages[defaultLang] = map[string]string{}
	}
	return &Catalog{defaultLang: defaultLang, messages: messages}
}

// T returns the message for key in the given language, formatted with args
// when present. Lookup falls back to the default language and finally to the
// key itself, so untranslated keys remain visible instead of vanishing.
func (c *Catalog) T(lang, key string, args ...any) string {
	msg, ok := c.lookup(lang, key)
	if !ok {
		msg, ok = c.lookup(c.defaultLang, key)
	}
	if !ok {
		msg = key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Has reports whether the key exists for the given language without fallback
func (c *Catalog) Has(lang, key string) bool {
	_, ok := c.lookup(lang, key)
	return ok
}

// DefaultLanguage returns the configured fallback language
func (c *Catalog) DefaultLanguage() string {
	return c.defaultLang
}

// Languages returns every language with at least one loaded message set
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		langs = append(langs, lang)
	}
	return langs
}

func (c *Catalog) lookup(lang, key string) (string, bool) {
	msgs, ok := c.messages[lang]
	if !ok {
		return "", false
	}
	msg, ok := msgs[key]
	return msg, ok
}
