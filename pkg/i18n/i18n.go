package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

// DefaultLanguage is used when no language is configured and as the fallback
// for messages missing from another catalog.
const DefaultLanguage = "en"

type Translations struct {
	bundle   *i18n.Bundle
	localize *i18n.Localizer
	lang     language.Tag
}

// NewTranslations loads the embedded catalogs and selects lang. An empty lang
// selects DefaultLanguage.
func NewTranslations(lang string) (*Translations, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(locales, "locales/active.*.toml")
	if err != nil {
		return nil, fmt.Errorf("error reading locales: %w", err)
	}
	for _, file := range files {
		buf, err := locales.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error reading locale file %s: %w", file, err)
		}
		if _, err := bundle.ParseMessageFileBytes(buf, path.Base(file)); err != nil {
			return nil, fmt.Errorf("error loading locale file %s: %w", file, err)
		}
	}

	t := &Translations{bundle: bundle}
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := t.SetLanguage(lang); err != nil {
		return nil, err
	}
	return t, nil
}

// Default returns English translations. The catalogs are embedded, so this
// only fails if they are malformed.
func Default() *Translations {
	t, err := NewTranslations(DefaultLanguage)
	if err != nil {
		panic(err)
	}
	return t
}

// SetLanguage switches the active catalog. Regional variants such as zh-CN
// select their base language.
func (t *Translations) SetLanguage(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("language '%s' not supported", lang)
	}
	base, _ := tag.Base()
	for _, supported := range t.bundle.LanguageTags() {
		if b, _ := supported.Base(); b == base {
			t.lang = supported
			t.localize = i18n.NewLocalizer(t.bundle, supported.String(), DefaultLanguage)
			return nil
		}
	}
	return fmt.Errorf("language '%s' not supported", lang)
}

// Language returns the active language, e.g. "en".
func (t *Translations) Language() string {
	return t.lang.String()
}

// Supported lists the languages with a catalog.
func (t *Translations) Supported() []string {
	tags := t.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}

// GetMessage localizes messageID. count selects the plural form for messages
// that have one and is exposed to the template as .Count when templateData
// does not set it.
func (t *Translations) GetMessage(messageID string, count int, templateData map[string]interface{}) string {
	data := make(map[string]interface{}, len(templateData)+1)
	for k, v := range templateData {
		data[k] = v
	}
	if _, ok := data["Count"]; !ok {
		data["Count"] = count
	}

	localized, err := t.localize.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: data,
	})
	if err != nil {
		return "Translation missing: " + messageID
	}
	return localized
}

// T localizes a message that takes no plural count.
func (t *Translations) T(messageID string, templateData map[string]interface{}) string {
	return t.GetMessage(messageID, 0, templateData)
}
