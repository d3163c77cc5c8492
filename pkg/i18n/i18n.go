// Package i18n models translatable messages as (key, params) tuples so that
// a record created before the viewer's locale is known can still be rendered
// in any later-chosen language.
package i18n

import (
	"strconv"
	"strings"
)

// OptionalParam renders to the empty string when Value is nil, otherwise to
// Prefix + *Value + Suffix. Used for fields like a tracking number that may
// not exist at notification time.
type OptionalParam struct {
	Value  *string `json:"value"`
	Prefix string  `json:"prefix,omitempty"`
	Suffix string  `json:"suffix,omitempty"`
}

func (p OptionalParam) render() string {
	if p.Value == nil {
		return ""
	}
	return p.Prefix + *p.Value + p.Suffix
}

// Message is a deferred-rendering message reference. Params fill {0}, {1}, …
// slots; Optional fill {opt0}, {opt1}, … slots.
type Message struct {
	Key      string          `json:"key"`
	Params   []string        `json:"params,omitempty"`
	Optional []OptionalParam `json:"optional,omitempty"`
}

func Msg(key string, params ...string) Message {
	return Message{Key: key, Params: params}
}

// WithOptional returns a copy of m with an extra optional parameter.
func (m Message) WithOptional(value *string, prefix, suffix string) Message {
	opt := append([]OptionalParam{}, m.Optional...)
	opt = append(opt, OptionalParam{Value: value, Prefix: prefix, Suffix: suffix})
	m.Optional = opt
	return m
}

// Bundle holds per-locale templates. Lookup falls back to the default locale,
// and finally to the key itself so an unknown key never renders empty.
type Bundle struct {
	defaultLocale string
	templates     map[string]map[string]string
}

func NewBundle(defaultLocale string) *Bundle {
	return &Bundle{
		defaultLocale: defaultLocale,
		templates:     make(map[string]map[string]string),
	}
}

func (b *Bundle) Add(locale, key, template string) {
	if b.templates[locale] == nil {
		b.templates[locale] = make(map[string]string)
	}
	b.templates[locale][key] = template
}

func (b *Bundle) lookup(locale, key string) (string, bool) {
	if t, ok := b.templates[locale][key]; ok {
		return t, true
	}
	if t, ok := b.templates[b.defaultLocale][key]; ok {
		return t, true
	}
	return "", false
}

// Render resolves m against the given locale.
func (b *Bundle) Render(locale string, m Message) string {
	tmpl, ok := b.lookup(locale, m.Key)
	if !ok {
		return m.Key
	}
	for i, p := range m.Params {
		tmpl = strings.ReplaceAll(tmpl, "{"+strconv.Itoa(i)+"}", p)
	}
	for i, p := range m.Optional {
		tmpl = strings.ReplaceAll(tmpl, "{opt"+strconv.Itoa(i)+"}", p.render())
	}
	return tmpl
}
