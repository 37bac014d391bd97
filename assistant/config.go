package assistant

// Config is the static session-wide configuration. Everything here is fixed
// for the lifetime of a session; only voice id and speaking rate can also be
// overridden per Speak call.
type Config struct {
	// Model ids.
	SpeechToTextModel   string
	ChatModel           string
	TextToSpeechModel   string
	EmbeddingModel      string
	EmbeddingDimensions int

	// Audio capture settings.
	SampleRate int
	Channels   int

	// Memory settings.
	DefaultUserID         string
	ProfileNamespace      string
	BusinessNamespace     string
	ConversationNamespace string
	InstructionsNamespace string

	// MaxConversationHistory is the number of recent messages kept in the
	// completion prompt.
	MaxConversationHistory int

	// Voice settings.
	DefaultVoiceID  string
	SpeakingRate    float64
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

// DefaultConfig returns the standard session configuration.
func DefaultConfig() *Config {
	return &Config{
		SpeechToTextModel:   "whisper-1",
		ChatModel:           "claude-3-5-sonnet-latest",
		TextToSpeechModel:   "eleven_turbo_v2_5",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,

		SampleRate: 16000,
		Channels:   1,

		DefaultUserID:         "default-user",
		ProfileNamespace:      "user_profile",
		BusinessNamespace:     "business_knowledge",
		ConversationNamespace: "conversation_history",
		InstructionsNamespace: "instructions",

		MaxConversationHistory: 10,

		DefaultVoiceID:  "pNInz6obpgDQGcFmaJgB", // ElevenLabs Adam voice
		SpeakingRate:    1.0,
		Stability:       0.0,
		SimilarityBoost: 1.0,
		Style:           0.0,
		SpeakerBoost:    true,
	}
}
