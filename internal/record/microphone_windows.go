//go:build windows

package record

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// PortAudio captures from the default input device.
type PortAudio struct{}

// DefaultMicrophone returns the PortAudio microphone.
func DefaultMicrophone() Microphone { return PortAudio{} }

func (PortAudio) Open(sampleRate, channels int) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	in := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), framesPerBuffer, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open stream failed: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start stream failed: %w", err)
	}
	return &paStream{stream: stream, in: in}, nil
}

type paStream struct {
	stream *portaudio.Stream
	in     []int16
}

func (p *paStream) Read() ([]int16, error) {
	if err := p.stream.Read(); err != nil {
		return nil, err
	}
	return p.in, nil
}

func (p *paStream) Close() error {
	_ = p.stream.Stop()
	err := p.stream.Close()
	_ = portaudio.Terminate()
	return err
}
