package tone

import (
	"strings"

	"github.com/dgnsrekt/narrator/tts"
)

// BuildPrompt assembles the full tone prompt for text: the style prompt,
// the translation template when a language is selected, then the text.
func BuildPrompt(req tts.ToneRequest, text string) string {
	var b strings.Builder
	b.WriteString(req.Prompt)

	if req.Language != "" && req.Language != tts.LanguageDisabled && req.TranslationTemplate != "" {
		b.WriteString("\n\n")
		b.WriteString(tts.SubstituteParams(req.TranslationTemplate, map[string]string{
			"language": req.Language,
		}))
	}

	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}
