// Package voice handles the audio boundary of the assistant: capturing and
// transcribing the user's speech, synthesizing and playing responses, and
// normalizing text for speech output.
package voice

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// SampleSource produces 16-bit PCM sample chunks from an input device.
type SampleSource interface {
	// ReadChunk returns the next chunk of samples. It blocks until samples
	// are available and returns an error when the source is exhausted.
	ReadChunk() ([]int16, error)
}

// StopSignal blocks until the user signals end of input.
type StopSignal interface {
	Wait()
}

// EnterKey is a StopSignal that fires when a line arrives on R,
// typically stdin.
type EnterKey struct {
	R io.Reader
}

// Wait blocks until a newline (or EOF) is read.
func (e EnterKey) Wait() {
	buf := make([]byte, 1)
	for {
		n, err := e.R.Read(buf)
		if err != nil {
			return
		}
		if n > 0 && buf[0] == '\n' {
			return
		}
	}
}

// Transcriber converts captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Recorder captures one utterance: a producer goroutine reads samples from
// the source and hands them over a channel while a second goroutine waits for
// the stop signal. The producer is abandoned, not joined, once the stop
// signal fires, so a source that stalls mid-read cannot hang the capture.
type Recorder struct {
	Source      SampleSource
	Stop        StopSignal
	Transcriber Transcriber
	SampleRate  int
	Channels    int
}

// Capture records until the stop signal fires and returns the transcript.
// No speech detected is not an error: the transcript is simply empty.
func (r *Recorder) Capture(ctx context.Context) (string, error) {
	stop := make(chan struct{})
	go func() {
		// May outlive a cancelled capture; it only holds the signal reader.
		r.Stop.Wait()
		close(stop)
	}()

	chunks := make(chan []int16)
	go func() {
		defer close(chunks)
		for {
			chunk, err := r.Source.ReadChunk()
			if err != nil {
				return
			}
			select {
			case chunks <- chunk:
			case <-stop:
				// A chunk read after the cue is discarded.
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var samples []int16
collect:
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				// Source exhausted; the capture still ends on the user's cue.
				select {
				case <-stop:
				case <-ctx.Done():
				}
				break collect
			}
			samples = append(samples, chunk...)
		case <-stop:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	if len(samples) == 0 {
		return "", nil
	}

	wav := EncodeWAV(samples, r.SampleRate, r.Channels)
	transcript, err := r.Transcriber.Transcribe(ctx, wav)
	if err != nil {
		return "", fmt.Errorf("transcribe captured audio: %w", err)
	}
	return transcript, nil
}

// ReaderSource reads little-endian 16-bit PCM from r, e.g. a pipe from
// `arecord -f S16_LE`.
type ReaderSource struct {
	R io.Reader

	// FrameSize is the number of samples per chunk. Defaults to 1024.
	FrameSize int
}

// ReadChunk reads up to one frame of samples.
func (s *ReaderSource) ReadChunk() ([]int16, error) {
	frame := s.FrameSize
	if frame <= 0 {
		frame = 1024
	}

	raw := make([]byte, frame*2)
	n, err := s.R.Read(raw)
	if n < 2 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	samples := make([]int16, n/2)
	for i := range samples {
		samples[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return samples, nil
}

// CommandSource streams PCM samples from an external capture command such as
// `arecord -f S16_LE -r 16000 -c 1 -t raw`.
type CommandSource struct {
	cmd    *exec.Cmd
	reader *ReaderSource
}

// StartCommandSource launches the capture command and begins streaming its
// stdout.
func StartCommandSource(name string, args ...string) (*CommandSource, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture command %s: %w", name, err)
	}
	return &CommandSource{
		cmd:    cmd,
		reader: &ReaderSource{R: out},
	}, nil
}

// ReadChunk returns the next chunk of samples from the capture command.
func (s *CommandSource) ReadChunk() ([]int16, error) {
	return s.reader.ReadChunk()
}

// Close stops the capture command.
func (s *CommandSource) Close() error {
	if err := s.cmd.Process.Kill(); err != nil {
		return err
	}
	s.cmd.Wait()
	return nil
}
