package annotation

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

var locales = []string{"en", "ko"}

type localizerKey struct{}

// Translations holds the message bundle and the configured fallback language
type Translations struct {
	bundle      *i18n.Bundle
	defaultLang string
}

// NewTranslations loads the embedded message files. defaultLang is used when the
// request does not ask for a language we have.
func NewTranslations(defaultLang string) (*Translations, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("while parsing language '%s': %w", defaultLang, err)
	}
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, locale := range locales {
		data, err := localesFS.ReadFile("locales/" + locale + ".json")
		if err != nil {
			return nil, fmt.Errorf("while reading locale file %s: %w", locale, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, locale+".json"); err != nil {
			return nil, fmt.Errorf("while parsing locale file %s: %w", locale, err)
		}
	}
	return &Translations{bundle: bundle, defaultLang: tag.String()}, nil
}

// Localizer returns a localizer for the given languages, falling back to the default one
func (t *Translations) Localizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(t.bundle, append(langs, t.defaultLang)...)
}

// LocalizerFromRequest picks the languages of the Accept-Language header
func (t *Translations) LocalizerFromRequest(r *http.Request) *i18n.Localizer {
	var langs []string
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		langs = append(langs, accept)
	}
	return t.Localizer(langs...)
}

// WithLocalizer adds a localizer to the context
func WithLocalizer(ctx context.Context, localizer *i18n.Localizer) context.Context {
	return context.WithValue(ctx, localizerKey{}, localizer)
}

// LocalizerFromContext retrieves the localizer from context, or nil
func LocalizerFromContext(ctx context.Context) *i18n.Localizer {
	localizer, _ := ctx.Value(localizerKey{}).(*i18n.Localizer)
	return localizer
}

// Localize translates a message, returning its id when there is no translation
func Localize(localizer *i18n.Localizer, messageID string, data any) string {
	if localizer == nil {
		return messageID
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
