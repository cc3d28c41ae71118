package feed

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// NormalizeLanguage maps BCP 47 tags ("zh", "zh-CN", "en-US") to the English
// language names stored on records ("Chinese", "English"). Values that are not
// language tags, such as "Chinese" itself, pass through unchanged.
func NormalizeLanguage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLanguage
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}

	base, confidence := tag.Base()
	if confidence == language.No {
		return raw
	}

	name := display.English.Languages().Name(language.Make(base.String()))
	if name == "" {
		return raw
	}
	return name
}
