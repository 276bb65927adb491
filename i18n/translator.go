// Package i18n resolves translation keys from embedded YAML catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Translator looks up dotted keys such as "messages.success.created".
type Translator struct {
	catalogs map[string]map[string]string
	fallback string
	locales  []string
	matcher  language.Matcher
}

// New loads the embedded catalogs. fallback must be one of them.
func New(fallback string) (*Translator, error) {
	return Load(localesFS, "locales", fallback)
}

// Load reads every <locale>.yaml under dir of fsys.
func Load(fsys fs.FS, dir, fallback string) (*Translator, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read catalogs: %w", err)
	}

	t := &Translator{catalogs: make(map[string]map[string]string), fallback: fallback}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		t.catalogs[strings.TrimSuffix(e.Name(), ".yaml")] = flat
	}
	if _, ok := t.catalogs[fallback]; !ok {
		return nil, fmt.Errorf("i18n: no catalog for fallback locale %q", fallback)
	}

	// fallback first so it wins ties in the matcher
	t.locales = append(t.locales, fallback)
	others := make([]string, 0, len(t.catalogs))
	for locale := range t.catalogs {
		if locale != fallback {
			others = append(others, locale)
		}
	}
	sort.Strings(others)
	t.locales = append(t.locales, others...)

	tags := make([]language.Tag, 0, len(t.locales))
	for _, locale := range t.locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("i18n: locale %q: %w", locale, err)
		}
		tags = append(tags, tag)
	}
	t.matcher = language.NewMatcher(tags)
	return t, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Locales lists the loaded locales, fallback first.
func (t *Translator) Locales() []string {
	return append([]string(nil), t.locales...)
}

// Negotiate picks the best loaded locale for an Accept-Language header.
func (t *Translator) Negotiate(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.fallback
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.fallback
	}
	return t.locales[idx]
}

// T translates key for locale, falling back to the default locale and then
// to the key itself. Params replace ":name" placeholders; ":Name" and
// ":NAME" give the capitalised and upper-cased value.
func (t *Translator) T(locale, key string, params map[string]string) string {
	msg, ok := t.catalogs[locale][key]
	if !ok {
		msg, ok = t.catalogs[t.fallback][key]
	}
	if !ok {
		return key
	}
	return replace(msg, params)
}

func replace(msg string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(msg, ":") {
		return msg
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	// longest first so ":name" does not eat ":names"
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	pairs := make([]string, 0, len(keys)*6)
	for _, k := range keys {
		v := params[k]
		lower := strings.ToLower(k)
		pairs = append(pairs,
			":"+strings.ToUpper(lower), strings.ToUpper(v),
			":"+ucfirst(lower), ucfirst(v),
			":"+lower, v,
		)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

func ucfirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
