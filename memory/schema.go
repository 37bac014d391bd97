package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/becomeliminal/vox-go-sdk/core"
)

// VoicePreferences captures how the user wants spoken responses delivered.
type VoicePreferences struct {
	PreferredVoice       string   `json:"preferred_voice"`
	SpeakingRate         float64  `json:"speaking_rate"`
	VerbosityLevel       string   `json:"verbosity_level"`       // concise, medium, detailed
	InterruptionHandling string   `json:"interruption_handling"` // ignore, pause, complete
	ConfirmationRequired []string `json:"confirmation_required"` // actions requiring verbal confirmation
}

// DefaultVoicePreferences returns the preferences used before the user has
// expressed any.
func DefaultVoicePreferences() VoicePreferences {
	return VoicePreferences{
		PreferredVoice:       "default",
		SpeakingRate:         1.0,
		VerbosityLevel:       "medium",
		InterruptionHandling: "pause",
		ConfirmationRequired: []string{},
	}
}

// UserProfile is the structured representation of what the assistant knows
// about the user. Exactly one live profile exists per user.
type UserProfile struct {
	Name                     string           `json:"name,omitempty"`
	Role                     string           `json:"role,omitempty"`
	CommunicationPreferences map[string]any   `json:"communication_preferences,omitempty"`
	Interests                []string         `json:"interests,omitempty"`
	Expertise                []string         `json:"expertise,omitempty"`
	VoicePreferences         VoicePreferences `json:"voice_preferences"`
}

// BusinessEntity is one entity in the user's business domain: a person,
// project, team, event, and so on. Many entities may exist per user.
type BusinessEntity struct {
	Name       string         `json:"name"`
	EntityType string         `json:"entity_type"`
	Attributes map[string]any `json:"attributes,omitempty"`
	// Relationships are directed typed links to other entities,
	// e.g. {"relation": "reports_to", "target": "Dana"}.
	Relationships []map[string]string `json:"relationships,omitempty"`
}

// Task is a piece of work the assistant tracks on the user's behalf.
type Task struct {
	Description     string     `json:"description"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	RelatedEntities []string   `json:"related_entities,omitempty"`
}

// ConversationContext is the mutable singleton tracking the state of the
// ongoing dialogue. It lives under the fixed key "context" in the
// conversation namespace, so it coexists with logged turns without key
// collision.
type ConversationContext struct {
	RecentTopics        []string         `json:"recent_topics"`
	UnresolvedQuestions []string         `json:"unresolved_questions"`
	InterruptedFlows    []map[string]any `json:"interrupted_flows"`
	LastInteraction     *time.Time       `json:"last_interaction,omitempty"`
}

// NewConversationContext returns an empty context with non-nil collections.
func NewConversationContext() *ConversationContext {
	return &ConversationContext{
		RecentTopics:        []string{},
		UnresolvedQuestions: []string{},
		InterruptedFlows:    []map[string]any{},
	}
}

// ConversationRecord is one logged conversation in the append-only history.
type ConversationRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Messages  []core.Message `json:"messages"`
}

// decodeStrict unmarshals data into v, rejecting unknown fields and trailing
// content. Stored values either match their declared shape exactly or fail;
// fields are never silently dropped.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after value")
	}
	return nil
}

// ValidateUserProfile checks that data is a well-formed UserProfile value.
func ValidateUserProfile(data []byte) error {
	var p UserProfile
	return decodeStrict(data, &p)
}

// ValidateBusinessEntity checks that data is a well-formed BusinessEntity
// value. Name and entity type are required.
func ValidateBusinessEntity(data []byte) error {
	var e BusinessEntity
	if err := decodeStrict(data, &e); err != nil {
		return err
	}
	if e.Name == "" {
		return fmt.Errorf("missing required field %q", "name")
	}
	if e.EntityType == "" {
		return fmt.Errorf("missing required field %q", "entity_type")
	}
	return nil
}

// ValidateTask checks that data is a well-formed Task value.
func ValidateTask(data []byte) error {
	var t Task
	if err := decodeStrict(data, &t); err != nil {
		return err
	}
	if t.Description == "" {
		return fmt.Errorf("missing required field %q", "description")
	}
	return nil
}
