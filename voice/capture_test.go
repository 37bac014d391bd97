package voice_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/becomeliminal/vox-go-sdk/voice"
)

// scriptedSource yields its chunks and then signals exhaustion, so the stop
// signal can fire only after every chunk has been consumed.
type scriptedSource struct {
	mu        sync.Mutex
	chunks    [][]int16
	exhausted chan struct{}
}

func newScriptedSource(chunks ...[]int16) *scriptedSource {
	return &scriptedSource{chunks: chunks, exhausted: make(chan struct{})}
}

func (s *scriptedSource) ReadChunk() ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) == 0 {
		select {
		case <-s.exhausted:
		default:
			close(s.exhausted)
		}
		return nil, io.EOF
	}
	next := s.chunks[0]
	s.chunks = s.chunks[1:]
	return next, nil
}

// chanStop fires once its channel closes.
type chanStop struct {
	ch <-chan struct{}
}

func (s chanStop) Wait() { <-s.ch }

type fakeTranscriber struct {
	wav        []byte
	transcript string
	err        error
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	t.wav = wav
	return t.transcript, t.err
}

func TestRecorderCapture(t *testing.T) {
	source := newScriptedSource([]int16{1, 2}, []int16{3, 4, 5})
	transcriber := &fakeTranscriber{transcript: "hello world"}
	recorder := &voice.Recorder{
		Source:      source,
		Stop:        chanStop{ch: source.exhausted},
		Transcriber: transcriber,
		SampleRate:  16000,
		Channels:    1,
	}

	transcript, err := recorder.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if transcript != "hello world" {
		t.Errorf("transcript = %q, want %q", transcript, "hello world")
	}

	wantBytes := 44 + 5*2
	if len(transcriber.wav) != wantBytes {
		t.Errorf("transcriber got %d bytes, want %d (header plus 5 samples)", len(transcriber.wav), wantBytes)
	}
	if !bytes.HasPrefix(transcriber.wav, []byte("RIFF")) {
		t.Error("transcriber should receive WAV, not raw PCM")
	}
}

func TestRecorderCaptureNoAudio(t *testing.T) {
	source := newScriptedSource()
	transcriber := &fakeTranscriber{transcript: "should not be called"}
	recorder := &voice.Recorder{
		Source:      source,
		Stop:        chanStop{ch: source.exhausted},
		Transcriber: transcriber,
		SampleRate:  16000,
		Channels:    1,
	}

	transcript, err := recorder.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if transcript != "" {
		t.Errorf("transcript = %q, want empty for silent capture", transcript)
	}
	if transcriber.wav != nil {
		t.Error("transcriber must not run on empty audio")
	}
}

func TestRecorderCaptureTranscribeError(t *testing.T) {
	source := newScriptedSource([]int16{1, 2, 3})
	transcriber := &fakeTranscriber{err: errors.New("service unavailable")}
	recorder := &voice.Recorder{
		Source:      source,
		Stop:        chanStop{ch: source.exhausted},
		Transcriber: transcriber,
		SampleRate:  16000,
		Channels:    1,
	}

	if _, err := recorder.Capture(context.Background()); err == nil {
		t.Error("transcription failures must surface")
	}
}

func TestRecorderCaptureCancelled(t *testing.T) {
	source := newScriptedSource([]int16{1})
	never := make(chan struct{})
	recorder := &voice.Recorder{
		Source:      source,
		Stop:        chanStop{ch: never},
		Transcriber: &fakeTranscriber{transcript: "x"},
		SampleRate:  16000,
		Channels:    1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context must not hang the capture.
	if _, err := recorder.Capture(ctx); err != nil {
		t.Fatalf("capture: %v", err)
	}
}

// stallingSource delivers its chunks and then blocks in ReadChunk without
// returning, like a paused capture process.
type stallingSource struct {
	mu      sync.Mutex
	chunks  [][]int16
	stalled chan struct{}
	release chan struct{}
}

func newStallingSource(chunks ...[]int16) *stallingSource {
	return &stallingSource{
		chunks:  chunks,
		stalled: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *stallingSource) ReadChunk() ([]int16, error) {
	s.mu.Lock()
	if len(s.chunks) > 0 {
		next := s.chunks[0]
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return next, nil
	}
	select {
	case <-s.stalled:
	default:
		close(s.stalled)
	}
	s.mu.Unlock()
	<-s.release
	return nil, io.EOF
}

func TestRecorderCaptureStalledSource(t *testing.T) {
	source := newStallingSource([]int16{1, 2, 3})
	t.Cleanup(func() { close(source.release) })

	transcriber := &fakeTranscriber{transcript: "hello"}
	recorder := &voice.Recorder{
		Source:      source,
		Stop:        chanStop{ch: source.stalled},
		Transcriber: transcriber,
		SampleRate:  16000,
		Channels:    1,
	}

	type result struct {
		transcript string
		err        error
	}
	results := make(chan result, 1)
	go func() {
		transcript, err := recorder.Capture(context.Background())
		results <- result{transcript, err}
	}()

	// The stop signal fires while the source is blocked mid-read; capture
	// must still return with the samples delivered so far.
	select {
	case got := <-results:
		if got.err != nil {
			t.Fatalf("capture: %v", got.err)
		}
		if got.transcript != "hello" {
			t.Errorf("transcript = %q, want %q", got.transcript, "hello")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not return after the stop signal")
	}

	if len(transcriber.wav) != 44+3*2 {
		t.Errorf("transcriber got %d bytes, want header plus 3 samples", len(transcriber.wav))
	}
}

func TestEnterKeyWait(t *testing.T) {
	done := make(chan struct{})
	go func() {
		voice.EnterKey{R: strings.NewReader("some typing\nmore")}.Wait()
		close(done)
	}()
	<-done

	// EOF without a newline must also release the waiter.
	voice.EnterKey{R: strings.NewReader("no newline")}.Wait()
}

func TestReaderSource(t *testing.T) {
	// Two samples, little endian: 1 and -2.
	raw := []byte{0x01, 0x00, 0xFE, 0xFF}
	source := &voice.ReaderSource{R: bytes.NewReader(raw)}

	chunk, err := source.ReadChunk()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk) != 2 || chunk[0] != 1 || chunk[1] != -2 {
		t.Errorf("chunk = %v, want [1 -2]", chunk)
	}

	if _, err := source.ReadChunk(); err == nil {
		t.Error("exhausted reader should error")
	}
}
