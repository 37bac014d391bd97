package voice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// WhisperTranscriber transcribes audio through the OpenAI audio API.
type WhisperTranscriber struct {
	client openai.Client
	model  string
}

// NewWhisperTranscriber creates a transcriber using the given model id,
// e.g. "whisper-1".
func NewWhisperTranscriber(client openai.Client, model string) *WhisperTranscriber {
	return &WhisperTranscriber{client: client, model: model}
}

// Transcribe converts WAV audio to text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(t.model),
		File:  openai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}
