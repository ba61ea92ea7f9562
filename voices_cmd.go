package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/tts"
)

var (
	voicesLanguage   string
	voicesPreview    string
	voicesCacheStats bool

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List the engine's voices and the voice map",
		Long: paragraph(fmt.Sprintf("\nList the voices offered by the configured engine and %s each speaker is mapped to.",
			keyword("the voice"))),
		Example: paragraph("narrator voices\nnarrator voices --language en-US\nnarrator voices --preview en-US-Neural2-C"),
		Args:    cobra.NoArgs,
		RunE:    runVoices,
	}
)

// escapeCell keeps a value from breaking a markdown table row.
func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

func voicesMarkdown(engine string, voices []tts.Voice, language string, mapping map[string]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s voices\n\n", engine)
	b.WriteString("| ID | Name | Language | Gender |\n|----|------|----------|--------|\n")
	n := 0
	for _, v := range voices {
		if language != "" && !strings.HasPrefix(strings.ToLower(v.Language), strings.ToLower(language)) {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", escapeCell(v.ID), escapeCell(v.Name), escapeCell(v.Language), escapeCell(v.Gender))
		n++
	}
	if n == 0 {
		b.WriteString("| - | no voices | - | - |\n")
	}

	b.WriteString("\n# Voice map\n\n")
	if len(mapping) == 0 {
		b.WriteString("No speakers mapped yet.\n")
		return b.String()
	}
	b.WriteString("| Speaker | Voice |\n|---------|-------|\n")
	speakers := make([]string, 0, len(mapping))
	for s := range mapping {
		speakers = append(speakers, s)
	}
	slices.Sort(speakers)
	for _, s := range speakers {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(s), escapeCell(mapping[s]))
	}
	return b.String()
}

func bytesOf(n int64) string {
	return humanize.Bytes(uint64(max(n, 0))) //nolint:gosec
}

func cacheStatsView(stats cache.ManagerStats, dir string) string {
	lines := []string{
		fmt.Sprintf("Cache %s", subtle(dir)),
		fmt.Sprintf("  memory  %d entries, %s", stats.Memory.ItemCount, bytesOf(stats.Memory.Size)),
		fmt.Sprintf("  disk    %d files, %s of %s", stats.Disk.ItemCount, bytesOf(stats.Disk.Size), bytesOf(stats.Disk.Capacity)),
		fmt.Sprintf("  hits    %d (%.0f%%)", stats.Hits, stats.HitRate*100),
	}
	if !stats.LastCleanup.IsZero() {
		lines = append(lines, fmt.Sprintf("  cleaned %s", humanize.Time(stats.LastCleanup)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func renderMarkdown(md string) (string, error) {
	style := styles.AutoStyle
	width := 80
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	} else {
		style = styles.NoTTYStyle
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	return r.Render(md)
}

func runVoices(cmd *cobra.Command, _ []string) error {
	cfg, creds, err := loadConfig()
	if err != nil {
		return err
	}
	// Nothing here rewrites text, and listing never plays.
	cfg.Tone.Provider = "static"
	if voicesPreview == "" {
		cfg.Player.Backend = "mock"
	}

	ctx := cmd.Context()
	logger := log.Default()
	a, err := newApp(ctx, cfg, creds, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	voices, err := a.engine.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("unable to list voices: %w", err)
	}

	if voicesPreview != "" {
		lang := voicesLanguage
		if i := slices.IndexFunc(voices, func(v tts.Voice) bool { return v.ID == voicesPreview }); i >= 0 && lang == "" {
			lang = voices[i].Language
		}
		logger.Info("previewing voice", "voice", voicesPreview, "language", lang)
		return tts.PreviewVoice(ctx, a.engine, a.player, voicesPreview, lang, a.settings.Settings().PlaybackRate)
	}

	out, err := renderMarkdown(voicesMarkdown(a.engine.Name(), voices, voicesLanguage, a.voices.Entries()))
	if err != nil {
		return fmt.Errorf("unable to render voices: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if voicesCacheStats {
		if a.cache == nil {
			fmt.Fprintln(cmd.OutOrStdout(), subtle("cache disabled"))
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), cacheStatsView(a.cache.Stats(), a.cache.Dir()))
	}
	return nil
}

func init() {
	voicesCmd.Flags().StringVarP(&voicesLanguage, "language", "l", "", "only list voices whose language starts with this code")
	voicesCmd.Flags().StringVar(&voicesPreview, "preview", "", "play a short sample with this voice id")
	voicesCmd.Flags().BoolVar(&voicesCacheStats, "cache-stats", false, "show synthesis cache usage")
}
