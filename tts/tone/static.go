package tone

import (
	"context"
	"regexp"
	"strings"

	"github.com/dgnsrekt/narrator/tts"
)

// DefaultInstruction is the style instruction Static gives every line.
const DefaultInstruction = "Read naturally, matching the mood of the scene:"

var quotedPattern = regexp.MustCompile(`[“«「『＂][^”»」』＂]*[”»」』＂]|"[^"]*"`)

// Static is an offline analyzer. It pairs every quoted line in the text
// with one fixed instruction and drops the narration around it.
type Static struct {
	Instruction string
}

// AnalyzeTone implements tts.ToneAnalyzer. Text without quoted dialogue is
// returned as a single instruction and line.
func (s Static) AnalyzeTone(_ context.Context, text string, _ tts.ToneRequest) (string, error) {
	instruction := s.Instruction
	if instruction == "" {
		instruction = DefaultInstruction
	}

	quotes := quotedPattern.FindAllString(text, -1)
	if len(quotes) == 0 {
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			return "", tts.ErrToneAnalysis
		}
		return instruction + "\n\"" + text + "\"", nil
	}

	lines := make([]string, 0, 2*len(quotes))
	for _, q := range quotes {
		lines = append(lines, instruction, q)
	}
	return strings.Join(lines, "\n"), nil
}
