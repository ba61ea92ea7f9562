package events

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// maxLineSize bounds one JSON event; chat snapshots carry whole message
// logs.
const maxLineSize = 4 << 20

// LineSource reads newline-delimited JSON events, usually from stdin, and
// writes one reply line per event when out is set.
type LineSource struct {
	in  io.Reader
	out io.Writer
	log *log.Logger

	mu sync.Mutex
}

// NewLineSource creates a source reading from in. out may be nil.
func NewLineSource(in io.Reader, out io.Writer, logger *log.Logger) *LineSource {
	if logger == nil {
		logger = log.Default()
	}
	return &LineSource{in: in, out: out, log: logger.WithPrefix("stdin")}
}

// Name returns "stdin".
func (s *LineSource) Name() string { return "stdin" }

// Run applies events until the input ends or ctx is done.
func (s *LineSource) Run(ctx context.Context, d *Dispatcher) error {
	lines := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if len(line) == 0 {
				continue
			}
			s.reply(d.HandleJSON(ctx, line))
		}
	}
}

func (s *LineSource) reply(r Reply) {
	if s.out == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.log.Debug("failed to write reply", "err", err)
	}
}
