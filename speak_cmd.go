package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrator/tts"
)

var (
	speakVoice    string
	speakLanguage string

	speakCmd = &cobra.Command{
		Use:   "speak [TEXT]",
		Short: "Narrate a piece of text and exit",
		Long: paragraph(fmt.Sprintf("\n%s text with the voice mapped to a speaker. Without arguments the text is read from stdin.",
			keyword("Speak"))),
		Example: paragraph("narrator speak \"Hello there\"\nnarrator speak --voice Alice < line.txt\nnarrator speak --language Korean \"Good morning\""),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runSpeak,
	}
)

func speakText(args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("nothing to say: pass the text as an argument or pipe it to stdin")
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// suggestSpeakers returns the mapped speakers closest to name.
func suggestSpeakers(name string, speakers []string) []string {
	matches := fuzzy.Find(name, speakers)
	var out []string
	for i, m := range matches {
		if i == 3 {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text, err := speakText(args)
	if err != nil {
		return err
	}
	if text == "" {
		return errors.New("nothing to say")
	}

	cfg, creds, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := log.Default()

	a, err := newApp(ctx, cfg, creds, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if speakLanguage != "" {
		err := a.settings.Update(func(s *tts.Settings) { s.SetToneLanguage(speakLanguage) })
		if err != nil {
			return fmt.Errorf("unable to set tone language: %w", err)
		}
		logger.Debug("tone language set", "language", speakLanguage)
	}

	if !a.settings.Settings().Enabled {
		return fmt.Errorf("narration is disabled in %s", a.settings.Path())
	}

	if speakVoice != "" {
		if err := a.voices.Init(ctx, true); err != nil {
			logger.Warn("voice map init failed", "err", err)
		}
		if _, res := a.voices.Resolve(speakVoice); res != tts.Resolved {
			err := fmt.Errorf("%s: %w", speakVoice, res.Err())
			if s := suggestSpeakers(speakVoice, a.voices.Speakers()); len(s) > 0 {
				err = fmt.Errorf("%w (did you mean %s?)", err, strings.Join(s, ", "))
			}
			return err
		}
	}

	var (
		mu     sync.Mutex
		failed error
	)
	a.notices.Add(tts.NotifierFunc(func(level tts.NoticeLevel, msg string) {
		mu.Lock()
		defer mu.Unlock()
		if level == tts.NoticeError && failed == nil {
			failed = errors.New(msg)
		}
	}))
	a.notices.Add(logNotifier(logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.pipeline.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer stop()
		a.narrator.NarrateText(gctx, text, speakVoice)
		waitIdle(gctx, a.pipeline)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	return failed
}

func init() {
	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "speaker whose mapped voice is used (default: the current character)")
	speakCmd.Flags().StringVar(&speakLanguage, "language", "", "tone language to translate into; saved to the settings")
}
