package tts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
)

// RosterSettleDelay bounds how long a chat switch waits for the voice map
// rebuild before handling further events.
const RosterSettleDelay = time.Second

// Narrator turns chat events and user commands into pipeline operations.
type Narrator struct {
	pipeline *Pipeline
	roster   *ChatRoster
	voices   *VoiceMap
	store    SettingsStore
	notifier Notifier
	log      *log.Logger

	settleDelay time.Duration

	mu          sync.Mutex
	lastChatID  string
	lastHash    uint64
	haveHash    bool
	lastMessage *Message
}

// NewNarrator creates a narrator driving pipeline.
func NewNarrator(pipeline *Pipeline, roster *ChatRoster, voices *VoiceMap, store SettingsStore, notifier Notifier, logger *log.Logger) *Narrator {
	if logger == nil {
		logger = log.Default()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(NoticeLevel, string) {})
	}
	return &Narrator{
		pipeline:    pipeline,
		roster:      roster,
		voices:      voices,
		store:       store,
		notifier:    notifier,
		log:         logger.WithPrefix("narrator"),
		settleDelay: RosterSettleDelay,
	}
}

func hashText(s string) uint64 {
	return xxhash.Sum64String(s)
}

// MessageRendered queues a freshly rendered message for narration when
// auto generation is on. upTo, when positive, truncates the text to that
// many characters. While a message streams in, only the part not narrated
// yet is queued.
func (n *Narrator) MessageRendered(msg Message, upTo int) {
	n.roster.Upsert(msg)

	settings := n.store.Settings()
	if !settings.Enabled || !settings.AutoGeneration {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	chatID := n.roster.ChatID()
	if chatID != n.lastChatID {
		// The first render after a chat switch is the old tail of the chat,
		// unless the chat only holds its greeting.
		n.lastChatID = chatID
		n.lastHash, n.haveHash = hashText(msg.Text), n.roster.Len() != 1
	}

	h := hashText(msg.Text)
	if msg.IsSystem || (n.haveHash && h == n.lastHash) {
		return
	}

	if upTo > 0 {
		if runes := []rune(msg.Text); upTo < len(runes) {
			msg.Text = string(runes[:upTo])
		}
	}

	full := msg
	if last := n.lastMessage; last != nil &&
		msg.SwipeID == last.SwipeID &&
		msg.Speaker == last.Speaker &&
		msg.IsUser == last.IsUser &&
		strings.Contains(msg.Text, last.Text) {
		msg.Text = strings.Replace(msg.Text, last.Text, "", 1)
	}
	n.lastMessage = &full

	if msg.Text == "" || msg.Text == "..." {
		return
	}

	n.lastHash, n.haveHash = h, true
	n.lastChatID = chatID

	n.log.Debug("queueing message", "speaker", msg.Speaker, "text", msg.Text)
	if err := n.pipeline.Enqueue(NewNarrationJob(msg.Text, msg.Speaker)); err != nil {
		n.log.Error("failed to queue message", "err", err)
	}
}

// MessageDeleted resets playback when the deletion changed the tail of the
// chat.
func (n *Narrator) MessageDeleted(id int) {
	n.roster.Delete(id)

	n.mu.Lock()
	n.lastChatID = n.roster.ChatID()
	last, ok := n.roster.LastMessage()
	h := hashText(last.Text)
	if n.haveHash && h == n.lastHash {
		n.mu.Unlock()
		return
	}
	n.lastHash, n.haveHash = h, true
	n.lastMessage = nil
	if ok {
		n.lastMessage = &last
	}
	n.mu.Unlock()

	n.pipeline.Reset()
}

// MessageSwiped stops narration of the swiped-away message.
func (n *Narrator) MessageSwiped(msg Message) {
	n.roster.Upsert(msg)
	n.pipeline.Reset()
}

// ChatChanged resets the pipeline and rebuilds the voice map for the new
// chat, waiting at most the settle delay for the rebuild.
func (n *Narrator) ChatChanged(ctx context.Context, snap ChatSnapshot) {
	n.roster.Apply(snap)
	n.pipeline.Reset()
	n.voices.ChatChanged()

	done := make(chan error, 1)
	go func() {
		done <- n.voices.Init(ctx, false)
	}()

	select {
	case err := <-done:
		if err != nil {
			n.log.Warn("voice map init failed", "chat", snap.ID, "err", err)
		}
	case <-time.After(n.settleDelay):
		n.log.Debug("voice map init still running", "chat", snap.ID)
	case <-ctx.Done():
	}

	n.mu.Lock()
	n.lastMessage = nil
	n.mu.Unlock()
}

// NarrateText speaks text with the voice mapped to voice, or to the current
// character when voice is empty. It always returns an empty
// acknowledgment; problems are reported as notices.
func (n *Narrator) NarrateText(ctx context.Context, text, voice string) string {
	if text == "" {
		return ""
	}

	if err := n.voices.Init(ctx, true); err != nil {
		n.log.Warn("voice map init failed", "err", err)
	}

	speaker := voice
	if speaker == "" {
		speaker = n.roster.CurrentCharacter()
	}
	if speaker == SystemSpeaker || speaker == "" {
		speaker = DefaultVoice
	}

	if _, res := n.voices.Resolve(speaker); res != Resolved {
		n.notifier.Notify(NoticeInfo, fmt.Sprintf("Specified voice for %s was not found. Check the voice map settings.", speaker))
		return ""
	}

	n.pipeline.Reset()
	if err := n.pipeline.Enqueue(NewNarrationJob(text, speaker)); err != nil {
		n.log.Error("failed to queue text", "err", err)
	}
	n.pipeline.Tick()

	if err := n.voices.Init(ctx, false); err != nil {
		n.log.Warn("voice map init failed", "err", err)
	}
	return ""
}

// NarrateMessage replaces whatever is playing with the message at id.
func (n *Narrator) NarrateMessage(id int) {
	msg, ok := n.roster.Message(id)
	if !ok {
		return
	}
	n.pipeline.Reset()
	if err := n.pipeline.Enqueue(NewNarrationJob(msg.Text, msg.Speaker)); err != nil {
		n.log.Error("failed to queue message", "err", err)
	}
	n.pipeline.Tick()
}

// NarrateAll replaces whatever is playing with every speakable message of
// the chat.
func (n *Narrator) NarrateAll() {
	n.pipeline.Reset()

	if !n.store.Settings().Enabled {
		n.notifier.Notify(NoticeWarn, "Narration is disabled. Enable it in the settings.")
		return
	}

	var jobs []NarrationJob
	for _, msg := range n.roster.Messages() {
		if msg.Speakable() {
			jobs = append(jobs, NewNarrationJob(msg.Text, msg.Speaker))
		}
	}
	if len(jobs) == 0 {
		n.notifier.Notify(NoticeInfo, "No messages to narrate.")
		return
	}
	if err := n.pipeline.Enqueue(jobs...); err != nil {
		n.log.Error("failed to queue chat", "err", err)
	}
}

// Toggle stops narration when anything is playing or pending, and
// otherwise narrates the last message.
func (n *Narrator) Toggle() {
	if n.pipeline.Processing() {
		n.pipeline.Reset()
		return
	}
	last, ok := n.roster.LastMessage()
	if !ok {
		return
	}
	if err := n.pipeline.Enqueue(NewNarrationJob(last.Text, last.Speaker)); err != nil {
		n.log.Error("failed to queue message", "err", err)
	}
}

// Pause holds playback and synthesis until Resume.
func (n *Narrator) Pause() { n.pipeline.Pause() }

// Resume undoes Pause.
func (n *Narrator) Resume() { n.pipeline.Resume() }

// Status returns the pipeline snapshot.
func (n *Narrator) Status() Status { return n.pipeline.Status() }
