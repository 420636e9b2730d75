// internal/i18n/i18n.go
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/text/language"
)

const (
	LocaleEnglish            = "en"
	LocaleTraditionalChinese = "zh_TW"
)

// SupportedLocales are loaded from <localesPath>/<locale>.json.
var SupportedLocales = []string{LocaleEnglish, LocaleTraditionalChinese}

// Catalog holds the messages of every supported locale. It is immutable
// once loaded.
type Catalog struct {
	messages      map[string]map[string]string
	defaultLocale string
}

var active atomic.Pointer[Catalog]

// Load reads every supported locale file under localesPath.
func Load(localesPath, defaultLocale string) (*Catalog, error) {
	if defaultLocale == "" {
		defaultLocale = LocaleEnglish
	}

	catalog := &Catalog{
		messages:      make(map[string]map[string]string, len(SupportedLocales)),
		defaultLocale: defaultLocale,
	}
	for _, locale := range SupportedLocales {
		path := filepath.Join(localesPath, locale+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", path, err)
		}

		var messages map[string]string
		if err := json.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("decode locale file %s: %w", path, err)
		}
		catalog.messages[locale] = messages
	}

	if _, ok := catalog.messages[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q is not supported", defaultLocale)
	}
	return catalog, nil
}

// Initialize loads the catalog used by T.
func Initialize(localesPath, defaultLocale string) error {
	catalog, err := Load(localesPath, defaultLocale)
	if err != nil {
		return err
	}
	active.Store(catalog)
	return nil
}

// T looks key up in locale, then in the default locale. Unknown keys come
// back unchanged.
func (c *Catalog) T(locale, key string, args ...interface{}) string {
	text, ok := c.messages[locale][key]
	if !ok {
		if text, ok = c.messages[c.defaultLocale][key]; !ok {
			return key
		}
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// T translates key with the catalog installed by Initialize. Before that it
// returns the key unchanged.
func T(locale, key string, args ...interface{}) string {
	if catalog := active.Load(); catalog != nil {
		return catalog.T(locale, key, args...)
	}
	return key
}

// NormalizeLocale picks the supported locale with the highest quality in an
// Accept-Language header. Any Chinese tag maps to Traditional Chinese.
func NormalizeLocale(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return LocaleEnglish
	}

	for _, tag := range tags {
		base, _ := tag.Base()
		switch base.String() {
		case "zh":
			return LocaleTraditionalChinese
		case "en":
			return LocaleEnglish
		}
	}
	return LocaleEnglish
}
