// Command vox runs the voice assistant from a terminal: press Enter to end
// each recording, and the assistant answers out loud.
//
// Required environment (a .env file in the working directory is honored):
//
//	ANTHROPIC_API_KEY    completions and memory extraction
//	OPENAI_API_KEY       transcription and embeddings
//	ELEVENLABS_API_KEY   speech synthesis
//
// Audio capture shells out to arecord and playback to mpg123, so both must
// be on PATH.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go"

	"github.com/becomeliminal/vox-go-sdk/assistant"
	"github.com/becomeliminal/vox-go-sdk/extraction"
	"github.com/becomeliminal/vox-go-sdk/llm"
	"github.com/becomeliminal/vox-go-sdk/memory"
	openaiembed "github.com/becomeliminal/vox-go-sdk/memory/embedder/openai"
	chromemstore "github.com/becomeliminal/vox-go-sdk/memory/store/chromem"
	"github.com/becomeliminal/vox-go-sdk/voice"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[VOX] %v", err)
	}
}

func run() error {
	// Missing .env is fine; the keys may come from the environment.
	_ = godotenv.Load()

	turns := flag.Int("turns", 3, "number of conversation turns")
	userID := flag.String("user", "", "user id (defaults to the configured default user)")
	flag.Parse()

	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY"} {
		if os.Getenv(key) == "" {
			return fmt.Errorf("%s is not set", key)
		}
	}

	config := assistant.DefaultConfig()
	if *userID != "" {
		config.DefaultUserID = *userID
	}

	// The SDK clients read their API keys from the environment.
	anthropicClient := anthropic.NewClient()
	openaiClient := openai.NewClient()

	embedder, err := openaiembed.New(openaiClient, openaiembed.Config{
		Model:      config.EmbeddingModel,
		Dimensions: config.EmbeddingDimensions,
	})
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	store, err := chromemstore.New(embedder)
	if err != nil {
		return fmt.Errorf("create memory store: %w", err)
	}

	profileExtractor, err := extraction.New(&anthropicClient, store, extraction.Config{
		Model:         config.ChatModel,
		NamespaceKind: config.ProfileNamespace,
		SchemaName:    "UserProfile",
		Schema:        extraction.UserProfileSchema(),
		SingletonKey:  "profile",
		Validate:      memory.ValidateUserProfile,
	})
	if err != nil {
		return fmt.Errorf("create profile extractor: %w", err)
	}

	businessExtractor, err := extraction.New(&anthropicClient, store, extraction.Config{
		Model:         config.ChatModel,
		NamespaceKind: config.BusinessNamespace,
		SchemaName:    "BusinessEntity",
		Schema:        extraction.BusinessEntitySchema(),
		EnableInserts: true,
		Validate:      memory.ValidateBusinessEntity,
	})
	if err != nil {
		return fmt.Errorf("create business extractor: %w", err)
	}

	source, err := voice.StartCommandSource("arecord",
		"-f", "S16_LE",
		"-r", strconv.Itoa(config.SampleRate),
		"-c", strconv.Itoa(config.Channels),
		"-t", "raw",
	)
	if err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}
	defer source.Close()

	recorder := &voice.Recorder{
		Source:      source,
		Stop:        voice.EnterKey{R: os.Stdin},
		Transcriber: voice.NewWhisperTranscriber(openaiClient, config.SpeechToTextModel),
		SampleRate:  config.SampleRate,
		Channels:    config.Channels,
	}

	speaker := voice.NewElevenLabsSpeaker(voice.SpeakerConfig{
		APIKey:       os.Getenv("ELEVENLABS_API_KEY"),
		ModelID:      config.TextToSpeechModel,
		VoiceID:      config.DefaultVoiceID,
		SpeakingRate: config.SpeakingRate,
		Settings: voice.VoiceSettings{
			Stability:       config.Stability,
			SimilarityBoost: config.SimilarityBoost,
			Style:           config.Style,
			UseSpeakerBoost: config.SpeakerBoost,
		},
		Player: voice.CommandPlayer{Name: "mpg123", Args: []string{"-q", "-"}},
	})

	completer := llm.NewAnthropicCompleter(&anthropicClient, config.ChatModel)

	session, err := assistant.New(config, assistant.Collaborators{
		Recorder:          recorder,
		Speaker:           speaker,
		Completer:         completer,
		Store:             store,
		ProfileExtractor:  profileExtractor,
		BusinessExtractor: businessExtractor,
	})
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}
	defer session.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Println("Speak, then press Enter to end each recording.")
	return session.Run(ctx, *turns)
}
