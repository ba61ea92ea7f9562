package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrator/internal/events"
	"github.com/dgnsrekt/narrator/internal/telemetry"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/ui"
)

var (
	serveTUI   bool
	serveStdin bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Narrate chat events as they arrive",
		Long: paragraph(fmt.Sprintf("\n%s chat events from the websocket bridge, NATS or stdin and narrate them with the mapped voices.",
			keyword("Listen"))),
		Example: paragraph("narrator serve\nnarrator serve --tui\nnarrator serve --stdin < events.jsonl"),
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}
)

// idlePoll is how often a finished stdin session checks whether playback
// has drained.
const idlePoll = 200 * time.Millisecond

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, creds, err := loadConfig()
	if err != nil {
		return err
	}
	if noWS, _ := cmd.Flags().GetBool("no-websocket"); noWS {
		cfg.Events.WebSocket.Enabled = false
	}
	if serveTUI && !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("--tui requires a terminal")
	}
	if serveTUI && serveStdin {
		return errors.New("cannot read events from stdin while the TUI is running")
	}
	if serveTUI && os.Getenv("NARRATOR_LOG") == "" {
		// The panel owns the terminal.
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := log.Default()

	var tel *telemetry.Telemetry
	if cfg.Metrics.Enabled {
		tel, err = telemetry.Setup(ctx, cfg.Metrics, Version, logger)
		if err != nil {
			return fmt.Errorf("unable to set up metrics: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = tel.Shutdown(shutdownCtx)
		}()
	}

	a, err := newApp(ctx, cfg, creds, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	d := events.NewDispatcher(a.narrator, logger)
	var sources []events.Source
	if cfg.Events.WebSocket.Enabled {
		ws := events.NewWebSocketServer(cfg.Events.WebSocket, logger)
		a.notices.Add(ws)
		a.pipeline.OnStatus(ws.PublishStatus)
		sources = append(sources, ws)
	}
	if cfg.Events.NATS.Enabled {
		sources = append(sources, events.NewNATSSource(cfg.Events.NATS, creds.NATSToken, logger))
	}
	if serveStdin {
		sources = append(sources, events.NewLineSource(os.Stdin, os.Stdout, logger))
	}
	if len(sources) == 0 && !serveTUI {
		return errors.New("no event source enabled: enable events.websocket or events.nats, or pass --stdin")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.pipeline.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error { return a.settings.Watch(gctx) })
	if tel != nil {
		g.Go(func() error { return tel.Serve(gctx) })
	}

	for _, src := range sources {
		g.Go(func() error {
			if err := src.Run(gctx, d); err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			if src.Name() == "stdin" && len(sources) == 1 {
				// Input ended; leave once everything queued has played.
				waitIdle(gctx, a.pipeline)
				stop()
			}
			return nil
		})
	}

	if serveTUI {
		uiCfg, err := env.ParseAs[ui.Config]()
		if err != nil {
			return fmt.Errorf("error parsing config: %v", err)
		}
		p := ui.NewProgram(uiCfg, a.narrator)
		tts.ForwardStatus(a.pipeline, p)
		a.notices.Add(tts.NoticeSender(p))

		g.Go(func() error {
			defer stop()
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("unable to run tui program: %w", err)
			}
			return nil
		})
		go func() {
			<-gctx.Done()
			p.Quit()
		}()
	} else {
		a.notices.Add(logNotifier(logger))
	}

	logger.Info("narrator ready", "engine", cfg.Engine, "tone", cfg.Tone.Provider, "sources", len(sources))
	return g.Wait()
}

// waitIdle returns once the pipeline has nothing queued or playing, or ctx
// is done.
func waitIdle(ctx context.Context, p *tts.Pipeline) {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for p.Processing() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func init() {
	serveCmd.Flags().BoolVar(&serveTUI, "tui", false, "show the status panel")
	serveCmd.Flags().BoolVar(&serveStdin, "stdin", false, "read newline-delimited JSON events from stdin")
	serveCmd.Flags().Bool("no-websocket", false, "disable the websocket event server")
	serveCmd.Flags().Bool("metrics", false, "serve Prometheus metrics")

	_ = viper.BindPFlag("metrics.enabled", serveCmd.Flags().Lookup("metrics"))
}
