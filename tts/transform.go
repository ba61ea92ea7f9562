package tts

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// Markers the synthesis model understands as turn boundaries.
const (
	SpeakerMarker     = "Speaker: "
	InstructionMarker = "Style instructions → "
)

var (
	imagePattern    = regexp.MustCompile(`!\[.*?]\([^)]*\)`)
	blankRunPattern = regexp.MustCompile(`[ \t]+`)
	quotePrefix     = regexp.MustCompile(`^>\s*`)
	inlineDialogue  = regexp.MustCompile(`: *([“«「『＂].*?[”»」』＂]|".*?")`)
	macroPattern    = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
	dialogueOpeners = []string{"“", "«", "「", "『", "＂", `"`}
)

// IsDialogue reports whether line opens with a quotation glyph.
func IsDialogue(line string) bool {
	line = strings.TrimSpace(line)
	for _, opener := range dialogueOpeners {
		if strings.HasPrefix(line, opener) {
			return true
		}
	}
	return false
}

// CleanToneOutput drops blockquote markers and blank lines from a tone
// model response.
func CleanToneOutput(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(quotePrefix.ReplaceAllString(line, ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// SplitInlineDialogue moves quoted dialogue that shares a line with its
// instruction onto the next line.
func SplitInlineDialogue(text string) string {
	return inlineDialogue.ReplaceAllString(text, ":\n$1")
}

// SubstituteParams replaces {{name}} macros. Names are matched
// case-insensitively; unknown macros are left in place.
func SubstituteParams(text string, params map[string]string) string {
	if len(params) == 0 {
		return text
	}
	return macroPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := strings.ToLower(macroPattern.FindStringSubmatch(m)[1])
		if v, ok := params[name]; ok {
			return v
		}
		return m
	})
}

// Normalize substitutes macros, strips markdown images and collapses
// intra-line whitespace. Line breaks survive.
func Normalize(text string, params map[string]string) string {
	text = SubstituteParams(text, params)
	text = imagePattern.ReplaceAllString(text, "")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(blankRunPattern.ReplaceAllString(line, " "))
	}
	return strings.Join(lines, "\n")
}

func trimLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// StripSpeakerLines removes "<speaker>:" from the start of every line.
func StripSpeakerLines(text, speaker string) string {
	if speaker == "" {
		return text
	}
	re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(speaker) + `:`)
	return re.ReplaceAllString(text, "")
}

// Frame marks each line as dialogue or style instruction. A non-empty
// prefix goes in front of every instruction when everyLine is set, and in
// front of the whole utterance otherwise.
func Frame(text, prefix string, everyLine bool) string {
	prefix = strings.TrimSpace(prefix)

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if IsDialogue(line) {
			out = append(out, SpeakerMarker+line)
			continue
		}
		instruction := line
		if everyLine && prefix != "" {
			instruction = prefix + " " + instruction
		}
		out = append(out, InstructionMarker+instruction)
	}

	framed := strings.Join(out, "\n")
	if !everyLine && prefix != "" {
		framed = prefix + " " + framed
	}
	return framed
}

// FrameDirect wraps text for direct-tone mode. Without a prefix the text is
// returned untouched.
func FrameDirect(text, prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return text
	}
	return InstructionMarker + prefix + "\n" + SpeakerMarker + text
}

// SplitSequential pairs each instruction line with the dialogue line that
// follows it and returns one derived job per pair. Dialogue without an
// instruction becomes a job of its own, as does a trailing instruction.
// Instructions followed by another instruction are returned in skipped.
func SplitSequential(job NarrationJob, text string) (jobs []NarrationJob, skipped []string) {
	var pending string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsDialogue(line) {
			if pending != "" {
				jobs = append(jobs, job.WithText(pending+"\n"+line))
				pending = ""
			} else {
				jobs = append(jobs, job.WithText(line))
			}
			continue
		}
		if pending != "" {
			skipped = append(skipped, pending)
		}
		pending = line
	}
	if pending != "" {
		jobs = append(jobs, job.WithText(pending))
	}
	return jobs, skipped
}

// Outcome is the result of transforming one narration job.
type Outcome struct {
	// Text is the speech-ready utterance when the job was not split.
	Text string
	// Split is set when the job was replaced by SubJobs.
	Split   bool
	SubJobs []NarrationJob
}

// Transformer turns narration jobs into speech-ready text.
type Transformer struct {
	analyzer ToneAnalyzer
	log      *log.Logger
}

// NewTransformer creates a Transformer. A nil analyzer is only valid while
// direct-tone mode is on.
func NewTransformer(analyzer ToneAnalyzer, logger *log.Logger) *Transformer {
	if logger == nil {
		logger = log.Default()
	}
	return &Transformer{analyzer: analyzer, log: logger.WithPrefix("transform")}
}

// Transform runs the tone rewrite, normalization and framing steps for
// job. Errors abort the job only.
func (t *Transformer) Transform(ctx context.Context, job NarrationJob, settings Settings) (Outcome, error) {
	text := job.Text

	if !settings.DirectTone && !job.ToneProcessed {
		if t.analyzer == nil {
			return Outcome{}, NewPipelineError(ErrMissingCredential, "tone", "analyze").ForSpeaker(job.Speaker)
		}
		rewritten, err := t.analyzer.AnalyzeTone(ctx, text, settings.ToneRequest())
		if err != nil {
			return Outcome{}, NewPipelineError(err, "tone", "analyze").ForSpeaker(job.Speaker)
		}
		rewritten = CleanToneOutput(rewritten)
		if rewritten == "" {
			return Outcome{}, NewPipelineError(ErrToneAnalysis, "tone", "analyze").ForSpeaker(job.Speaker)
		}
		text = SplitInlineDialogue(rewritten)
		t.log.Debug("tone rewrite", "job", job.ID, "text", text)

		if settings.SequentialNarration {
			jobs, skipped := SplitSequential(job, text)
			for _, line := range skipped {
				t.log.Warn("skipping instruction without dialogue", "job", job.ID, "line", line)
			}
			return Outcome{Split: true, SubJobs: jobs}, nil
		}
	}

	text = Normalize(text, t.params(job, settings))
	if !settings.ShowSpeakerNames {
		text = trimLines(StripSpeakerLines(text, job.Speaker))
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{}, NewPipelineError(ErrEmptyText, "transform", "normalize").ForSpeaker(job.Speaker)
	}

	if settings.DirectTone {
		text = FrameDirect(text, settings.PrefixPrompt)
	} else {
		text = Frame(text, settings.PrefixPrompt, settings.PrefixEveryDialogue)
	}
	return Outcome{Text: text}, nil
}

func (t *Transformer) params(job NarrationJob, settings Settings) map[string]string {
	params := make(map[string]string, len(settings.Macros)+2)
	for k, v := range settings.Macros {
		params[strings.ToLower(k)] = v
	}
	params["char"] = job.Speaker
	params["user"] = settings.UserName
	return params
}
