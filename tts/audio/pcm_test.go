package audio

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func tone(frames, channels int) []byte {
	data := make([]byte, frames*channels*BytesPerSample)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			v := int16((f * 100) % 30000)
			binary.LittleEndian.PutUint16(data[(f*channels+ch)*BytesPerSample:], uint16(v))
		}
	}
	return data
}

func TestEncodeDecodeWAV(t *testing.T) {
	in := PCM{Data: tone(1600, 1), SampleRate: 16000, Channels: 1}

	wavData, err := EncodeWAV(in)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if string(wavData[:4]) != "RIFF" {
		t.Fatalf("Expected RIFF header, got %q", wavData[:4])
	}

	out, err := Decode(wavData, "audio/wav")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.SampleRate != 16000 || out.Channels != 1 {
		t.Errorf("Unexpected format: %d Hz, %d channels", out.SampleRate, out.Channels)
	}
	if out.Frames() != 1600 {
		t.Errorf("Expected 1600 frames, got %d", out.Frames())
	}
	if out.Duration() != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got %v", out.Duration())
	}
	if out.sample(10, 0) != in.sample(10, 0) {
		t.Errorf("Sample mismatch: %d vs %d", out.sample(10, 0), in.sample(10, 0))
	}
}

func TestDecodeRawPCM(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		data     []byte
		rate     int
		channels int
		wantErr  error
	}{
		{"l16 with rate", "audio/L16; rate=24000", tone(10, 1), 24000, 1, nil},
		{"pcm stereo", "audio/pcm;rate=16000;channels=2", tone(10, 2), 16000, 2, nil},
		{"missing rate", "audio/L16", tone(10, 1), 0, 0, ErrUnsupportedFormat},
		{"mp3", "audio/mpeg", []byte{1, 2, 3}, 0, 0, ErrUnsupportedFormat},
		{"invalid wav", "audio/wav", []byte("not a wav"), 0, 0, ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm, err := Decode(tt.data, tt.mimeType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if pcm.SampleRate != tt.rate || pcm.Channels != tt.channels {
				t.Errorf("Expected %d Hz/%d ch, got %d Hz/%d ch", tt.rate, tt.channels, pcm.SampleRate, pcm.Channels)
			}
		})
	}
}

func TestDecodeMisalignedPCM(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}, "audio/pcm;rate=16000"); err == nil {
		t.Error("Expected error for odd-length PCM")
	}
}

func TestResample(t *testing.T) {
	in := PCM{Data: tone(1000, 1), SampleRate: 16000, Channels: 1}

	tests := []struct {
		name       string
		rate       int
		speed      float64
		wantFrames int
	}{
		{"unchanged", 16000, 1, 1000},
		{"upsample", 32000, 1, 2000},
		{"double speed", 16000, 2, 500},
		{"half speed", 16000, 0.5, 2000},
		{"zero speed means normal", 16000, 0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resample(in, tt.rate, 1, tt.speed)
			if out.SampleRate != tt.rate {
				t.Errorf("Expected rate %d, got %d", tt.rate, out.SampleRate)
			}
			if out.Frames() != tt.wantFrames {
				t.Errorf("Expected %d frames, got %d", tt.wantFrames, out.Frames())
			}
		})
	}
}

func TestResampleDownmix(t *testing.T) {
	data := make([]byte, 2*BytesPerSample)
	binary.LittleEndian.PutUint16(data[0:], uint16(int16(1000)))
	binary.LittleEndian.PutUint16(data[2:], uint16(int16(3000)))
	stereo := PCM{Data: data, SampleRate: 8000, Channels: 2}

	mono := Resample(stereo, 8000, 1, 1)
	if mono.Channels != 1 || mono.Frames() != 1 {
		t.Fatalf("Expected one mono frame, got %d frames of %d channels", mono.Frames(), mono.Channels)
	}
	if got := mono.sample(0, 0); got != 2000 {
		t.Errorf("Expected averaged sample 2000, got %d", got)
	}
}

func BenchmarkResample(b *testing.B) {
	in := PCM{Data: tone(24000, 1), SampleRate: 24000, Channels: 1}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Resample(in, 48000, 1, 1.25)
	}
}
