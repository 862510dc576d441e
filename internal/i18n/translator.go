// Package i18n provides message translation for user-facing strings.
//
// Translations are looked up by domain and key; keys are the English
// source strings. Placeholders of the form {name} are interpolated from
// the params map after lookup, so a missing translation still renders a
// readable English message.
package i18n

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Translator looks up the text for key in domain and interpolates params.
type Translator interface {
	T(domain, key string, params map[string]any) string
}

// Catalog is a Translator backed by an in-memory table for one locale.
// The zero value translates nothing and only interpolates.
type Catalog struct {
	locale string

	mu      sync.RWMutex
	entries map[string]map[string]string // domain -> key -> text
}

// NewCatalog returns an empty catalog for locale.
func NewCatalog(locale string) *Catalog {
	return &Catalog{
		locale:  locale,
		entries: make(map[string]map[string]string),
	}
}

// catalogFile is the on-disk layout: locale -> domain -> key -> text.
type catalogFile map[string]map[string]map[string]string

// LoadFile reads a YAML catalog from path and keeps the entries for locale.
func LoadFile(path, locale string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open translations: %w", err)
	}
	defer f.Close()

	return Load(f, locale)
}

// Load reads a YAML catalog from r and keeps the entries for locale.
// An unknown locale yields an empty catalog, not an error.
func Load(r io.Reader, locale string) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode translations: %w", err)
	}

	c := NewCatalog(locale)
	for domain, keys := range file[locale] {
		for key, text := range keys {
			c.Add(domain, key, text)
		}
	}
	return c, nil
}

// Locale returns the locale this catalog serves.
func (c *Catalog) Locale() string {
	return c.locale
}

// Add registers a translation.
func (c *Catalog) Add(domain, key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[string]map[string]string)
	}
	if c.entries[domain] == nil {
		c.entries[domain] = make(map[string]string)
	}
	c.entries[domain][key] = text
}

// T implements Translator. Unknown keys fall back to the key itself.
func (c *Catalog) T(domain, key string, params map[string]any) string {
	text := key

	c.mu.RLock()
	if t, ok := c.entries[domain][key]; ok && t != "" {
		text = t
	}
	c.mu.RUnlock()

	return Interpolate(text, params)
}

// Interpolate replaces {name} placeholders in text with params[name].
// Placeholders without a matching param are left untouched.
func Interpolate(text string, params map[string]any) string {
	if len(params) == 0 {
		return text
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", fmt.Sprint(params[name]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
