package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ru2en/internal/apperr"
	"ru2en/internal/logger"
)

// TempPrefix marks recording artifacts so stale ones can be swept on start.
const TempPrefix = "RecordTemp_"

// State represents session state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Microphone opens capture streams.
type Microphone interface {
	Open(sampleRate, channels int) (Stream, error)
}

// Stream delivers interleaved int16 chunks. Read blocks until a chunk is
// available; the returned slice may be reused by the next Read.
type Stream interface {
	Read() ([]int16, error)
	Close() error
}

// Session owns the Idle/Recording state machine and one audio buffer per
// recording cycle.
type Session struct {
	mic        Microphone
	sampleRate int
	channels   int
	log        *logger.Logger

	mu     sync.Mutex
	state  State
	buf    *Buffer
	cancel context.CancelFunc
	done   chan error
}

// NewSession creates an idle session.
func NewSession(mic Microphone, sampleRate, channels int, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		mic:        mic,
		sampleRate: sampleRate,
		channels:   channels,
		log:        log,
		state:      StateIdle,
	}
}

// Start opens the microphone and begins accumulating into a fresh buffer.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("session not idle")
	}

	stream, err := s.mic.Open(s.sampleRate, s.channels)
	if err != nil {
		return apperr.Capturef(err, "Audio device unavailable: %v", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.buf = NewBuffer(s.sampleRate, s.channels)
	s.cancel = cancel
	s.done = make(chan error, 1)
	s.state = StateRecording

	go s.loop(loopCtx, stream, s.buf, s.done)
	s.log.Debug("recording started", logger.Int("sample_rate", s.sampleRate), logger.Int("channels", s.channels))
	return nil
}

// Stop ends the cycle and returns its buffer. The buffer is never shared
// with a later cycle.
func (s *Session) Stop() (*Buffer, error) {
	buf, err := s.finish()
	if err != nil {
		return buf, err
	}
	s.log.Debug("recording stopped", logger.Duration("duration", buf.Duration()), logger.Int("peak", buf.Peak()))
	return buf, nil
}

// Cancel ends the cycle and discards its buffer.
func (s *Session) Cancel() error {
	_, err := s.finish()
	if err == nil {
		s.log.Debug("recording discarded")
	}
	return err
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) finish() (*Buffer, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil, fmt.Errorf("session not recording")
	}
	s.state = StateIdle
	buf, cancel, done := s.buf, s.cancel, s.done
	s.buf, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()

	cancel()
	if err := <-done; err != nil {
		return buf, apperr.Capturef(err, "Audio: %v", err)
	}
	return buf, nil
}

func (s *Session) loop(ctx context.Context, stream Stream, buf *Buffer, done chan<- error) {
	var loopErr error
	defer func() {
		if r := recover(); r != nil {
			loopErr = fmt.Errorf("capture panic: %v", r)
		}
		if err := stream.Close(); err != nil && loopErr == nil {
			s.log.Debug("stream close failed", logger.Error(err))
		}
		done <- loopErr
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		chunk, err := stream.Read()
		if err != nil {
			s.log.Debug("stream read error", logger.Error(err))
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		buf.Append(chunk)
	}
}

// TempWAVPath returns a unique artifact path in dir (cwd when empty).
func TempWAVPath(dir string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	base := fmt.Sprintf("%s%s.wav", TempPrefix, id)
	if dir == "" {
		cwd, _ := os.Getwd()
		dir = cwd
	}
	return filepath.Join(dir, base)
}
