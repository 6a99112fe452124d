package gamedata

import (
	"fmt"

	"github.com/leonelquinteros/gotext"
)

// DefaultLanguage is the catalog used when no other language is configured.
const DefaultLanguage = "en"

// LoadMessages parses the embedded gettext catalog for lang.
func LoadMessages(lang string) (*gotext.Po, error) {
	content, err := dataFS.ReadFile("locales/" + lang + ".po")
	if err != nil {
		return nil, fmt.Errorf("no message catalog for language %q: %w", lang, err)
	}

	po := gotext.NewPo()
	po.Parse(content)
	return po, nil
}
