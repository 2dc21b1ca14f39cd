// Package labels produces localized display names for switcher actions.
package labels

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	keyOpenWith    = "Open with"
	keyOpenWithApp = "Open with %s"
)

var translations = map[language.Tag][2]string{
	language.German:  {"Öffnen mit", "Öffnen mit %s"},
	language.French:  {"Ouvrir avec", "Ouvrir avec %s"},
	language.Spanish: {"Abrir con", "Abrir con %s"},
	language.Italian: {"Apri con", "Apri con %s"},
	language.Dutch:   {"Openen met", "Openen met %s"},
}

var messages = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	_ = b.SetString(language.English, keyOpenWith, keyOpenWith)
	_ = b.SetString(language.English, keyOpenWithApp, keyOpenWithApp)
	for tag, t := range translations {
		_ = b.SetString(tag, keyOpenWith, t[0])
		_ = b.SetString(tag, keyOpenWithApp, t[1])
	}
	return b
}

// Labeler formats action display names in one language.
type Labeler struct {
	printer *message.Printer
	names   map[string]string
}

// New returns a Labeler for locale (a BCP 47 tag such as "de" or "fr-CA").
// Unknown or invalid locales fall back to English. names maps integration
// ids to their display names; ids without an entry are shown as-is.
func New(locale string, names map[string]string) *Labeler {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			supported := messages.Languages()
			_, idx, conf := language.NewMatcher(supported).Match(parsed)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	copied := make(map[string]string, len(names))
	for k, v := range names {
		copied[k] = v
	}
	return &Labeler{
		printer: message.NewPrinter(tag, message.Catalog(messages)),
		names:   copied,
	}
}

// AppName returns the display name of an integration.
func (l *Labeler) AppName(integration string) string {
	if n, ok := l.names[integration]; ok && n != "" {
		return n
	}
	return integration
}

// OpenWith is the umbrella action label.
func (l *Labeler) OpenWith() string {
	return l.printer.Sprintf(keyOpenWith)
}

// OpenWithApp is the label of an integration's action.
func (l *Labeler) OpenWithApp(integration string) string {
	return l.printer.Sprintf(keyOpenWithApp, l.AppName(integration))
}
