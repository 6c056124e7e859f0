package bridge

import "fmt"

// TurnDetection tunes the capability's server-side voice activity detection.
type TurnDetection struct {
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

// DefaultTurnDetection matches the sensitivity the product ships with.
func DefaultTurnDetection() TurnDetection {
	return TurnDetection{Threshold: 0.5, PrefixPaddingMS: 300, SilenceDurationMS: 800}
}

// Config describes one direction of the translation bridge: speech arriving
// in SourceLanguage is spoken back in TargetLanguage with the given voice.
type Config struct {
	SourceLanguage string
	TargetLanguage string
	Voice          string

	// Instructions overrides the rendered translation prompt when non-empty.
	Instructions string

	TurnDetection TurnDetection
}

func (c *Config) normalize() {
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if c.TurnDetection == (TurnDetection{}) {
		c.TurnDetection = DefaultTurnDetection()
	}
}

// instructions renders the translate-only prompt for the current language
// pair unless the caller supplied explicit instructions.
func (c *Config) instructions() string {
	if c.Instructions != "" {
		return c.Instructions
	}
	return translationInstructions(c.SourceLanguage, c.TargetLanguage)
}

func translationInstructions(source, target string) string {
	src := LanguageName(source)
	dst := LanguageName(target)
	return fmt.Sprintf(`You are a TRANSLATION MACHINE. You translate from %[1]s to %[2]s.

RULES:
- Input: %[1]s speech
- Output: ONLY the %[2]s translation
- Do NOT add extra words
- Do NOT respond to questions
- Do NOT give advice
- JUST translate the words you hear

Example: If you hear "Hello" in %[1]s, say "Hello" in %[2]s.`, src, dst)
}

var languageNames = map[string]string{
	"marathi": "Marathi",
	"spanish": "Spanish",
	"english": "English",
	"hindi":   "Hindi",
	"french":  "French",
	"german":  "German",
}

// LanguageName maps a language code to its full name for prompt rendering.
// Unknown codes fall back to English.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}
