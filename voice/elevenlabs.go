package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/exec"
	"strings"
)

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io"

// Player renders synthesized audio to the user.
type Player interface {
	Play(audio []byte) error
}

// WriterPlayer writes audio bytes to w, e.g. a file or an audio pipe.
type WriterPlayer struct {
	W io.Writer
}

func (p WriterPlayer) Play(audio []byte) error {
	_, err := p.W.Write(audio)
	return err
}

// CommandPlayer pipes audio into an external player such as `mpg123 -q -`.
type CommandPlayer struct {
	Name string
	Args []string
}

func (p CommandPlayer) Play(audio []byte) error {
	cmd := exec.Command(p.Name, p.Args...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play audio with %s: %w", p.Name, err)
	}
	return nil
}

// VoiceSettings mirrors the ElevenLabs voice_settings payload.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// SpeakerConfig configures an ElevenLabsSpeaker. Voice id and speaking rate
// are session defaults; both can be overridden per Speak call.
type SpeakerConfig struct {
	APIKey       string
	BaseURL      string // defaults to the public API
	ModelID      string // e.g. "eleven_turbo_v2_5"
	VoiceID      string
	SpeakingRate float64
	Settings     VoiceSettings
	Player       Player
	HTTPClient   *http.Client
}

// ElevenLabsSpeaker synthesizes speech through the ElevenLabs
// text-to-speech API and hands the audio to a Player.
type ElevenLabsSpeaker struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	modelID      string
	voiceID      string
	speakingRate float64
	settings     VoiceSettings
	player       Player
}

// NewElevenLabsSpeaker creates a speaker from config.
func NewElevenLabsSpeaker(config SpeakerConfig) *ElevenLabsSpeaker {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	return &ElevenLabsSpeaker{
		httpClient:   httpClient,
		apiKey:       config.APIKey,
		baseURL:      baseURL,
		modelID:      config.ModelID,
		voiceID:      config.VoiceID,
		speakingRate: config.SpeakingRate,
		settings:     config.Settings,
		player:       config.Player,
	}
}

// SpeakOption overrides voice parameters for a single call.
type SpeakOption func(*speakParams)

type speakParams struct {
	voiceID string
	rate    float64
}

// WithVoice overrides the voice id for one call.
func WithVoice(voiceID string) SpeakOption {
	return func(p *speakParams) {
		p.voiceID = voiceID
	}
}

// WithSpeakingRate overrides the speaking rate for one call.
func WithSpeakingRate(rate float64) SpeakOption {
	return func(p *speakParams) {
		p.rate = rate
	}
}

// ttsRequest is the ElevenLabs text-to-speech request body.
type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Speak synthesizes text and plays it. No-op on empty text. Emphasis markup
// is stripped before synthesis; it is not speech-safe.
func (s *ElevenLabsSpeaker) Speak(ctx context.Context, text string, opts ...SpeakOption) error {
	if text == "" {
		return nil
	}

	params := speakParams{voiceID: s.voiceID, rate: s.speakingRate}
	for _, opt := range opts {
		opt(&params)
	}

	cleaned := strings.ReplaceAll(text, "**", "")

	settings := s.settings
	if params.rate != 0 && params.rate != 1.0 {
		settings.Speed = params.rate
	}

	body, err := json.Marshal(ttsRequest{
		Text:          cleaned,
		ModelID:       s.modelID,
		VoiceSettings: settings,
	})
	if err != nil {
		return fmt.Errorf("marshal text-to-speech request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=mp3_22050_32", s.baseURL, params.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build text-to-speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("text-to-speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("text-to-speech request failed with status %d: %s", resp.StatusCode, detail)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read synthesized audio: %w", err)
	}

	log.Printf("[VOICE] Speaking: %s", truncateLog(cleaned, 50))
	if s.player == nil {
		return nil
	}
	return s.player.Play(audio)
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
