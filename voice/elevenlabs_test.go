package voice_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/vox-go-sdk/voice"
)

type capturingPlayer struct {
	audio []byte
}

func (p *capturingPlayer) Play(audio []byte) error {
	p.audio = append([]byte(nil), audio...)
	return nil
}

type ttsCapture struct {
	path   string
	query  string
	apiKey string
	body   map[string]any
}

func newTTSServer(t *testing.T, audio []byte, capture *ttsCapture) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capture.path = r.URL.Path
		capture.query = r.URL.RawQuery
		capture.apiKey = r.Header.Get("xi-api-key")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &capture.body))

		w.Write(audio)
	}))
}

func newTestSpeaker(server *httptest.Server, player voice.Player) *voice.ElevenLabsSpeaker {
	return voice.NewElevenLabsSpeaker(voice.SpeakerConfig{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		ModelID:      "eleven_turbo_v2_5",
		VoiceID:      "voice-1",
		SpeakingRate: 1.0,
		Settings: voice.VoiceSettings{
			Stability:       0.0,
			SimilarityBoost: 1.0,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
		Player: player,
	})
}

func TestSpeak(t *testing.T) {
	audio := []byte("mp3-bytes")
	capture := &ttsCapture{}
	server := newTTSServer(t, audio, capture)
	defer server.Close()

	player := &capturingPlayer{}
	speaker := newTestSpeaker(server, player)

	require.NoError(t, speaker.Speak(context.Background(), "Hello **Aaron**"))

	assert.Equal(t, "/v1/text-to-speech/voice-1", capture.path)
	assert.Equal(t, "output_format=mp3_22050_32", capture.query)
	assert.Equal(t, "test-key", capture.apiKey)

	assert.Equal(t, "Hello Aaron", capture.body["text"], "emphasis markup must be stripped")
	assert.Equal(t, "eleven_turbo_v2_5", capture.body["model_id"])

	settings, ok := capture.body["voice_settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, settings["similarity_boost"])
	assert.Equal(t, true, settings["use_speaker_boost"])
	_, hasSpeed := settings["speed"]
	assert.False(t, hasSpeed, "default rate must not send a speed override")

	assert.True(t, bytes.Equal(player.audio, audio), "player must receive the synthesized audio")
}

func TestSpeakEmptyTextIsNoOp(t *testing.T) {
	capture := &ttsCapture{}
	server := newTTSServer(t, nil, capture)
	defer server.Close()

	speaker := newTestSpeaker(server, &capturingPlayer{})
	require.NoError(t, speaker.Speak(context.Background(), ""))
	assert.Empty(t, capture.path, "no request may be made for empty text")
}

func TestSpeakOverrides(t *testing.T) {
	capture := &ttsCapture{}
	server := newTTSServer(t, []byte("x"), capture)
	defer server.Close()

	speaker := newTestSpeaker(server, &capturingPlayer{})
	require.NoError(t, speaker.Speak(context.Background(), "hi",
		voice.WithVoice("voice-2"), voice.WithSpeakingRate(1.2)))

	assert.Equal(t, "/v1/text-to-speech/voice-2", capture.path)
	settings, ok := capture.body["voice_settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.2, settings["speed"])
}

func TestSpeakServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad voice id", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	speaker := newTestSpeaker(server, &capturingPlayer{})
	err := speaker.Speak(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "bad voice id")
}

func TestSpeakWithoutPlayer(t *testing.T) {
	capture := &ttsCapture{}
	server := newTTSServer(t, []byte("x"), capture)
	defer server.Close()

	speaker := voice.NewElevenLabsSpeaker(voice.SpeakerConfig{
		APIKey:  "k",
		BaseURL: server.URL,
		ModelID: "eleven_turbo_v2_5",
		VoiceID: "voice-1",
	})
	assert.NoError(t, speaker.Speak(context.Background(), "hi"))
}

func TestCommandPlayerMissingBinary(t *testing.T) {
	player := voice.CommandPlayer{Name: "definitely-not-a-player"}
	assert.Error(t, player.Play([]byte("audio")))
}

func TestWriterPlayer(t *testing.T) {
	var buf bytes.Buffer
	player := voice.WriterPlayer{W: &buf}
	require.NoError(t, player.Play([]byte("audio")))
	assert.Equal(t, "audio", buf.String())
}
