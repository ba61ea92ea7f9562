package audio_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

func testSource() tts.AudioSource {
	return tts.Inline([]byte("test"), "audio/wav")
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		t.Fatal("playback did not complete")
		return nil
	}
}

// TestMockPlayerBasicPlayback tests play to natural completion.
func TestMockPlayerBasicPlayback(t *testing.T) {
	player := audio.NewMockPlayer()
	defer player.Close()

	if player.IsPlaying() {
		t.Error("Player should not be playing initially")
	}

	done, err := player.Play(context.Background(), testSource(), 1)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !player.IsPlaying() {
		t.Error("Player should be playing after Play")
	}

	if err := waitDone(t, done); err != nil {
		t.Errorf("Expected natural completion, got %v", err)
	}
	if player.IsPlaying() {
		t.Error("Player should not be playing after completion")
	}
}

// TestMockPlayerRejectsOverlap tests that only one utterance plays at a time.
func TestMockPlayerRejectsOverlap(t *testing.T) {
	player := audio.NewMockPlayer()
	player.SetManual(true)
	defer player.Close()

	if _, err := player.Play(context.Background(), testSource(), 1); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if _, err := player.Play(context.Background(), testSource(), 1); err == nil {
		t.Error("Expected error when playing over an active utterance")
	}
}

// TestMockPlayerStop tests that Stop cancels the active utterance.
func TestMockPlayerStop(t *testing.T) {
	player := audio.NewMockPlayer()
	player.SetManual(true)
	defer player.Close()

	done, err := player.Play(context.Background(), testSource(), 1)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := player.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := waitDone(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if player.IsPlaying() {
		t.Error("Player should not be playing after Stop")
	}

	// Stopping an idle player is a no-op.
	if err := player.Stop(); err != nil {
		t.Errorf("Stop on idle player failed: %v", err)
	}
}

// TestMockPlayerContextCancel tests that cancelling the context ends playback.
func TestMockPlayerContextCancel(t *testing.T) {
	player := audio.NewMockPlayer()
	player.SetManual(true)
	defer player.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done, err := player.Play(ctx, testSource(), 1)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	cancel()
	if err := waitDone(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestMockPlayerManualFinish tests manual completion.
func TestMockPlayerManualFinish(t *testing.T) {
	player := audio.NewMockPlayer()
	player.SetManual(true)
	defer player.Close()

	if player.Finish(nil) {
		t.Error("Finish should fail with nothing playing")
	}

	done, _ := player.Play(context.Background(), testSource(), 1)
	time.Sleep(20 * time.Millisecond)
	if !player.IsPlaying() {
		t.Fatal("Manual playback should not end on its own")
	}

	decodeErr := errors.New("decode failed")
	if !player.Finish(decodeErr) {
		t.Fatal("Finish should succeed while playing")
	}
	if err := waitDone(t, done); !errors.Is(err, decodeErr) {
		t.Errorf("Expected injected error, got %v", err)
	}
}

// TestMockPlayerRate tests that the rate scales the utterance length.
func TestMockPlayerRate(t *testing.T) {
	player := audio.NewMockPlayer()
	player.SetDuration(200 * time.Millisecond)
	defer player.Close()

	start := time.Now()
	done, _ := player.Play(context.Background(), testSource(), 4)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Playback at 4x took %v, expected about 50ms", elapsed)
	}

	history := player.GetHistory()
	if len(history) == 0 || history[0].Rate != 4 {
		t.Errorf("Expected rate 4 recorded, got %+v", history)
	}
}

// TestMockPlayerCallbacks tests the callback functionality.
func TestMockPlayerCallbacks(t *testing.T) {
	player := audio.NewMockPlayer()
	defer player.Close()

	var mu sync.Mutex
	var events []string
	record := func(ev string) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	player.SetCallbacks(audio.MockCallbacks{
		OnPlay:   func(tts.AudioSource) { record("play") },
		OnStop:   func() { record("stop") },
		OnFinish: func(_ tts.AudioSource, err error) { record("finish") },
	})

	done, _ := player.Play(context.Background(), testSource(), 1)
	waitDone(t, done)

	player.SetManual(true)
	done, _ = player.Play(context.Background(), testSource(), 1)
	_ = player.Stop()
	waitDone(t, done)

	mu.Lock()
	defer mu.Unlock()
	counts := map[string]int{}
	for _, ev := range events {
		counts[ev]++
	}
	if counts["play"] != 2 || counts["stop"] != 1 || counts["finish"] != 2 {
		t.Errorf("Unexpected callback counts: %v", counts)
	}
	if events[0] != "play" || events[1] != "finish" {
		t.Errorf("Expected play then finish first, got %v", events)
	}
}

// TestMockPlayerHistory tests playback history tracking.
func TestMockPlayerHistory(t *testing.T) {
	player := audio.NewMockPlayer()
	defer player.Close()

	first := tts.Inline([]byte("one"), "audio/wav")
	second := tts.Reference("https://example.com/two.wav")

	for _, src := range []tts.AudioSource{first, second} {
		done, err := player.Play(context.Background(), src, 1)
		if err != nil {
			t.Fatalf("Play failed: %v", err)
		}
		waitDone(t, done)
	}

	played := player.Played()
	if len(played) != 2 {
		t.Fatalf("Expected 2 plays, got %d", len(played))
	}
	if played[1].URI() != second.URI() {
		t.Errorf("Expected second play %s, got %s", second.URI(), played[1].URI())
	}

	player.ClearHistory()
	if len(player.GetHistory()) != 0 {
		t.Error("History should be empty after clear")
	}
}

// TestMockPlayerErrorInjection tests error injection.
func TestMockPlayerErrorInjection(t *testing.T) {
	player := audio.NewMockPlayer()
	defer player.Close()

	playErr := errors.New("device busy")
	player.InjectError("play", playErr)
	if _, err := player.Play(context.Background(), testSource(), 1); !errors.Is(err, playErr) {
		t.Errorf("Expected injected play error, got %v", err)
	}

	player.ClearErrors()
	finishErr := errors.New("decode failed")
	player.InjectError("finish", finishErr)
	done, err := player.Play(context.Background(), testSource(), 1)
	if err != nil {
		t.Fatalf("Play should succeed after ClearErrors: %v", err)
	}
	if err := waitDone(t, done); !errors.Is(err, finishErr) {
		t.Errorf("Expected injected finish error, got %v", err)
	}
}

// TestMockPlayerClosed tests that a closed player refuses playback.
func TestMockPlayerClosed(t *testing.T) {
	player := audio.NewMockPlayer()
	player.Close()

	if _, err := player.Play(context.Background(), testSource(), 1); !errors.Is(err, tts.ErrPlayerClosed) {
		t.Errorf("Expected ErrPlayerClosed, got %v", err)
	}
}

// TestMockPlayerWaitForPlays tests waiting on play calls.
func TestMockPlayerWaitForPlays(t *testing.T) {
	player := audio.NewMockPlayer()
	defer player.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		player.Play(context.Background(), testSource(), 1)
	}()

	if err := player.WaitForPlays(1, time.Second); err != nil {
		t.Errorf("WaitForPlays failed: %v", err)
	}
	if err := player.WaitForPlays(5, 30*time.Millisecond); err == nil {
		t.Error("Expected timeout waiting for plays that never happen")
	}
}

// TestMockPlayerConcurrentAccess tests thread safety.
func TestMockPlayerConcurrentAccess(t *testing.T) {
	player := audio.NewMockPlayer()
	player.SetDuration(time.Millisecond)
	defer player.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if done, err := player.Play(context.Background(), testSource(), 1); err == nil {
					<-done
				}
				player.IsPlaying()
				player.GetHistory()
			}
		}()
	}
	wg.Wait()
}
