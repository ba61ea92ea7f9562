package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Output format constants. Every payload is converted to this before it
// reaches the device.
const (
	BitDepth       = 16
	BytesPerSample = BitDepth / 8
)

// ErrUnsupportedFormat is returned for payloads the player cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// PCM is signed 16-bit little-endian interleaved audio.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (p PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Data) / (BytesPerSample * p.Channels)
}

// Duration returns the playback length at the native rate.
func (p PCM) Duration() time.Duration {
	if p.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(p.Frames()) / float64(p.SampleRate) * float64(time.Second))
}

func (p PCM) sample(frame, ch int) int16 {
	i := (frame*p.Channels + ch) * BytesPerSample
	return int16(binary.LittleEndian.Uint16(p.Data[i:]))
}

// Decode converts an encoded payload into PCM. WAV containers and raw PCM
// labelled audio/L16 or audio/pcm (with rate and channels parameters) are
// understood.
func Decode(data []byte, mimeType string) (PCM, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return PCM{}, fmt.Errorf("parse mime type %q: %w", mimeType, err)
	}

	switch mediaType {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return decodeWAV(data)
	case "audio/l16", "audio/pcm":
		// Providers label little-endian PCM as audio/L16 too.
		rate, err := intParam(params, "rate", 0)
		if err != nil || rate <= 0 {
			return PCM{}, fmt.Errorf("%w: %s needs a rate parameter", ErrUnsupportedFormat, mediaType)
		}
		channels, err := intParam(params, "channels", 1)
		if err != nil || channels <= 0 {
			return PCM{}, fmt.Errorf("%w: bad channels parameter", ErrUnsupportedFormat)
		}
		if len(data)%(BytesPerSample*channels) != 0 {
			return PCM{}, fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(data), BytesPerSample*channels)
		}
		return PCM{Data: data, SampleRate: rate, Channels: channels}, nil
	default:
		return PCM{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}
}

func intParam(params map[string]string, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

func decodeWAV(data []byte) (PCM, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return PCM{}, fmt.Errorf("%w: invalid wav file", ErrUnsupportedFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("decode wav: %w", err)
	}

	shift := int(dec.BitDepth) - BitDepth
	out := make([]byte, len(buf.Data)*BytesPerSample)
	for i, v := range buf.Data {
		switch {
		case dec.BitDepth == 8:
			// 8-bit WAV is unsigned.
			v = (v - 128) << 8
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(int16(v)))
	}

	return PCM{
		Data:       out,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}

// EncodeWAV wraps PCM in a WAV container.
func EncodeWAV(p PCM) ([]byte, error) {
	ws := &writeSeeker{}
	enc := wav.NewEncoder(ws, p.SampleRate, BitDepth, p.Channels, 1)

	samples := make([]int, len(p.Data)/BytesPerSample)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(p.Data[i*BytesPerSample:])))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: p.Channels, SampleRate: p.SampleRate},
		Data:           samples,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return ws.buf, nil
}

// writeSeeker is an in-memory io.WriteSeeker for the WAV encoder, which
// seeks back to patch the header sizes.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	w.pos = int(abs)
	return abs, nil
}

// Resample converts p to the given rate and channel count with linear
// interpolation. Playing at speed is done by treating the input as if it
// were recorded at rate×speed.
func Resample(p PCM, sampleRate, channels int, speed float64) PCM {
	if speed <= 0 {
		speed = 1
	}
	p = remix(p, channels)

	srcRate := float64(p.SampleRate) * speed
	if int(srcRate) == sampleRate {
		return PCM{Data: p.Data, SampleRate: sampleRate, Channels: p.Channels}
	}

	ratio := float64(sampleRate) / srcRate
	inFrames := p.Frames()
	outFrames := int(float64(inFrames) * ratio)
	out := make([]byte, outFrames*p.Channels*BytesPerSample)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		frac := pos - float64(idx)
		for ch := 0; ch < p.Channels; ch++ {
			var v int16
			if idx >= inFrames-1 {
				v = p.sample(inFrames-1, ch)
			} else {
				a, b := float64(p.sample(idx, ch)), float64(p.sample(idx+1, ch))
				v = int16(a*(1-frac) + b*frac)
			}
			binary.LittleEndian.PutUint16(out[(i*p.Channels+ch)*BytesPerSample:], uint16(v))
		}
	}
	return PCM{Data: out, SampleRate: sampleRate, Channels: p.Channels}
}

// remix converts between mono and multichannel by averaging or duplicating.
func remix(p PCM, channels int) PCM {
	if channels <= 0 || p.Channels == channels {
		return p
	}
	frames := p.Frames()
	out := make([]byte, frames*channels*BytesPerSample)
	for f := 0; f < frames; f++ {
		var sum int
		for ch := 0; ch < p.Channels; ch++ {
			sum += int(p.sample(f, ch))
		}
		v := int16(sum / p.Channels)
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(out[(f*channels+ch)*BytesPerSample:], uint16(v))
		}
	}
	return PCM{Data: out, SampleRate: p.SampleRate, Channels: channels}
}
