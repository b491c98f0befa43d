// Package i18n loads the embedded translations and exposes the few lookups the
// directory views need: plain messages, department labels, month names and ages.
package i18n

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-addressbook/internal/config"
	"github.com/tartampluch/go-addressbook/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator resolves message keys for one language.
type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      string

	// Languages lists the locale codes found in the embedded files.
	Languages []string
}

// New loads every embedded locale and selects lang, falling back to English.
func New(lang string) *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{bundle: bundle}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		t.Languages = append(t.Languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}

	t.SetLanguage(lang)
	return t
}

// SetLanguage switches the active language. Unparsable codes select the default.
func (t *Translator) SetLanguage(lang string) {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	t.lang = tag.String()
	t.localizer = i18n.NewLocalizer(t.bundle, t.lang, config.DefaultLanguage)
}

// Language returns the active language code.
func (t *Translator) Language() string {
	return t.lang
}

// Msg translates key, returning the key itself when no translation exists.
func (t *Translator) Msg(key string) string {
	return t.localize(&i18n.LocalizeConfig{MessageID: key}, key)
}

func (t *Translator) localize(lc *i18n.LocalizeConfig, fallback string) string {
	msg, err := t.localizer.Localize(lc)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, lc.MessageID,
			config.LogKeyError, err,
		)
		return fallback
	}
	return msg
}

// Age renders a plural-aware "N years" label.
func (t *Translator) Age(years int) string {
	return t.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyAgeYears,
		TemplateData: map[string]any{"Count": years},
		PluralCount:  years,
	}, strconv.Itoa(years))
}

// DepartmentLabel returns the display name of d. Unknown departments are shown verbatim.
func (t *Translator) DepartmentLabel(d engine.Department) string {
	fallback, ok := engine.DepartmentNames[d]
	if !ok {
		return string(d)
	}
	return t.localize(&i18n.LocalizeConfig{MessageID: config.TKeyDeptPrefix + string(d)}, fallback)
}

// MonthName implements engine.MonthNamer. Languages that inflect month names
// return the form used after a day number ("15 июня").
func (t *Translator) MonthName(m time.Month) string {
	return t.localize(&i18n.LocalizeConfig{MessageID: config.TKeyMonthPrefix + strconv.Itoa(int(m))}, "")
}

// EventSummary titles a calendar event. Age 0 is the birth itself.
func (t *Translator) EventSummary(name string, age int) string {
	switch {
	case age == 0:
		return t.localize(&i18n.LocalizeConfig{
			MessageID:    config.TKeyEvtSummaryBirth,
			TemplateData: map[string]any{"Name": name},
		}, name)
	case age > 0:
		return t.localize(&i18n.LocalizeConfig{
			MessageID:    config.TKeyEvtSummaryAge,
			TemplateData: map[string]any{"Name": name, "Age": age},
		}, name)
	default:
		return t.localize(&i18n.LocalizeConfig{
			MessageID:    config.TKeyEvtSummary,
			TemplateData: map[string]any{"Name": name},
		}, name)
	}
}
