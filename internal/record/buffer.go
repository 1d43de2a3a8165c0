package record

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"ru2en/internal/apperr"
)

const (
	// MinDuration is the shortest recording handed to transcription.
	MinDuration = 500 * time.Millisecond
	// SilencePeak is the int16 peak below which a recording counts as silence.
	SilencePeak = 200
)

var (
	ErrEmpty    = errors.New("nothing recorded")
	ErrTooShort = errors.New("recording too short")
	ErrTooQuiet = errors.New("recording too quiet")
)

// Buffer is the ordered sequence of PCM chunks captured in one recording
// cycle. Samples are interleaved int16.
type Buffer struct {
	SampleRate int
	Channels   int

	mu     sync.Mutex
	chunks [][]int16
	n      int
}

// NewBuffer returns an empty buffer for the given stream format.
func NewBuffer(sampleRate, channels int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	return &Buffer{SampleRate: sampleRate, Channels: channels}
}

// Append copies chunk onto the end of the buffer.
func (b *Buffer) Append(chunk []int16) {
	if len(chunk) == 0 {
		return
	}
	c := make([]int16, len(chunk))
	copy(c, chunk)
	b.mu.Lock()
	b.chunks = append(b.chunks, c)
	b.n += len(c)
	b.mu.Unlock()
}

// Len is the total number of samples across all channels.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Duration is the length of the recording in time.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	frames := b.Len() / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	peak := 0
	for _, c := range b.chunks {
		for _, s := range c {
			v := int(s)
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}

// Samples concatenates all chunks.
func (b *Buffer) Samples() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int16, 0, b.n)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

// Validate rejects recordings that are empty, shorter than minDuration or
// whose peak stays below minPeak. The returned error is a Capture error
// wrapping ErrEmpty, ErrTooShort or ErrTooQuiet.
func (b *Buffer) Validate(minDuration time.Duration, minPeak int) error {
	if b.Len() == 0 {
		return apperr.Capturef(ErrEmpty, "Nothing recorded.")
	}
	if d := b.Duration(); d < minDuration {
		return apperr.Capturef(ErrTooShort, "Recording too short (%.1fs). Try again.", d.Seconds())
	}
	if b.Peak() < minPeak {
		return apperr.Capturef(ErrTooQuiet, "Silence or too quiet. Try again.")
	}
	return nil
}

// WriteWAV writes the buffer as 16-bit PCM WAV.
func (b *Buffer) WriteWAV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav failed: %w", err)
	}

	enc := wav.NewEncoder(file, b.SampleRate, 16, b.Channels, 1)
	format := &audio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate}

	b.mu.Lock()
	chunks := b.chunks
	b.mu.Unlock()

	for _, c := range chunks {
		data := make([]int, len(c))
		for i, v := range c {
			data[i] = int(v)
		}
		buf := &audio.IntBuffer{Format: format, Data: data, SourceBitDepth: 16}
		if err := enc.Write(buf); err != nil {
			_ = enc.Close()
			_ = file.Close()
			_ = os.Remove(path)
			return fmt.Errorf("wav write failed: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("wav close failed: %w", err)
	}
	return file.Close()
}
