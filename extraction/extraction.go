// Package extraction implements the model-driven extraction policy: reading
// a conversation and committing structured record writes into one memory
// namespace.
//
// One Policy instance exists per (memory kind, schema) pair, configured with
// the namespace kind, the record schema, and an insert-permission flag.
// Update-only policies (user profile) always write the singleton record and
// can never create a second one; insert-or-update policies (business
// knowledge) may create new records or merge into existing ones the model
// matched by its own similarity judgment. The existing records in the
// namespace are always shown to the model so merge decisions are grounded.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/becomeliminal/vox-go-sdk/core"
	"github.com/becomeliminal/vox-go-sdk/memory"
)

// messageCreator is the slice of the Anthropic client the policy needs.
type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Config configures a Policy.
type Config struct {
	// Model is the completion model driving extraction.
	Model string

	// NamespaceKind is the memory-kind segment of the target namespace;
	// the user id segment is filled per Invoke call.
	NamespaceKind string

	// SchemaName names the record type in prompts and errors, e.g.
	// "UserProfile".
	SchemaName string

	// Schema is the JSON Schema of the record value (see schema.go).
	Schema map[string]any

	// EnableInserts allows the policy to create new records. When false the
	// policy only updates the namespace's singleton record.
	EnableInserts bool

	// SingletonKey is the key the singleton record is created under the
	// first time an update-only policy writes. Ignored when inserts are
	// enabled.
	SingletonKey string

	// Validate checks a proposed record value before it is written.
	// Invalid proposals are skipped, not stored.
	Validate func(data []byte) error

	// MaxTokens caps the extraction completion. Defaults to 1024.
	MaxTokens int64
}

// Policy extracts structured memory writes from a conversation with one
// tool-use completion per Invoke.
type Policy struct {
	messages messageCreator
	store    memory.Store
	config   Config
}

// New creates a Policy writing through store.
func New(client *anthropic.Client, store memory.Store, config Config) (*Policy, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("extraction model is required")
	}
	if config.NamespaceKind == "" {
		return nil, fmt.Errorf("extraction namespace kind is required")
	}
	if !config.EnableInserts && config.SingletonKey == "" {
		return nil, fmt.Errorf("update-only extraction requires a singleton key")
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	return &Policy{
		messages: &client.Messages,
		store:    store,
		config:   config,
	}, nil
}

// upsertCall is the tool input shape the model fills in.
type upsertCall struct {
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value"`
}

// Invoke reads the conversation and commits zero or more record writes into
// the policy's namespace for userID.
func (p *Policy) Invoke(ctx context.Context, messages []core.Message, userID string) error {
	ns := memory.NewNamespace(p.config.NamespaceKind, userID)

	existing, err := p.store.Search(ctx, ns, memory.SearchOptions{})
	if err != nil {
		return fmt.Errorf("load existing %s records: %w", p.config.NamespaceKind, err)
	}

	toolName := "upsert_" + p.config.NamespaceKind
	tool := anthropic.ToolParam{
		Name: toolName,
		Description: anthropic.String(fmt.Sprintf(
			"Write one %s record into memory. Call once per record that should be written.",
			p.config.SchemaName)),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"key": StringProperty(
					"Key of the existing record to update. Omit to create a new record."),
				"value": p.config.Schema,
			},
			Required: []string{"value"},
		},
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: p.config.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: p.buildSystemPrompt(existing, toolName)},
		},
		Messages: toParams(messages),
		Tools:    []anthropic.ToolUnionParam{{OfTool: &tool}},
	}

	resp, err := p.messages.New(ctx, params)
	if err != nil {
		return fmt.Errorf("%s extraction completion: %w", p.config.NamespaceKind, err)
	}

	writes := 0
	for _, block := range resp.Content {
		if block.Type != "tool_use" {
			continue
		}

		var call upsertCall
		if err := json.Unmarshal(block.Input, &call); err != nil {
			log.Printf("[EXTRACT] Skipping malformed %s tool call: %v", p.config.SchemaName, err)
			continue
		}
		if p.config.Validate != nil {
			if err := p.config.Validate(call.Value); err != nil {
				log.Printf("[EXTRACT] Skipping invalid %s value: %v", p.config.SchemaName, err)
				continue
			}
		}

		key := p.resolveKey(call.Key, existing)
		if err := p.store.Put(ctx, ns, key, call.Value); err != nil {
			return fmt.Errorf("store %s record %s: %w", p.config.NamespaceKind, key, err)
		}
		writes++
	}

	log.Printf("[EXTRACT] %s: %d record(s) written for user %s", p.config.NamespaceKind, writes, userID)
	return nil
}

// resolveKey picks the storage key for a proposed write.
//
// Update-only policies ignore the model's key entirely: the write always
// lands on the existing singleton record, or on the configured key the
// first time, so a second record can never appear. Insert-or-update
// policies honor a key that names an existing record and mint a fresh one
// otherwise.
func (p *Policy) resolveKey(proposed string, existing []memory.Record) string {
	if !p.config.EnableInserts {
		if len(existing) > 0 {
			return existing[0].Key
		}
		return p.config.SingletonKey
	}

	if proposed != "" {
		for _, rec := range existing {
			if rec.Key == proposed {
				return proposed
			}
		}
	}
	return uuid.New().String()
}

// buildSystemPrompt describes the extraction task and enumerates the
// existing records so the model can merge instead of duplicating.
func (p *Policy) buildSystemPrompt(existing []memory.Record, toolName string) string {
	mode := "You may update existing records or create new ones. Reuse an existing record's key when the conversation refers to the same entity; create a new record only for genuinely new entities."
	if !p.config.EnableInserts {
		mode = "Exactly one record exists for this user. Merge new information into it and write the full merged value; never discard previously known fields that the conversation did not contradict."
	}

	prompt := fmt.Sprintf(`You maintain the assistant's long-term %s memory.

Read the conversation and decide what should be remembered. Use the %s tool once per record to write. If the conversation contains nothing worth remembering, do not call the tool.

%s`, p.config.SchemaName, toolName, mode)

	if len(existing) == 0 {
		return prompt + "\n\nNo records are stored yet."
	}

	prompt += "\n\nExisting records:"
	for _, rec := range existing {
		prompt += fmt.Sprintf("\n- key=%s: %s", rec.Key, rec.Value)
	}
	return prompt
}

// toParams converts conversation messages for the Anthropic API. System
// messages are omitted; the extraction prompt supplies its own.
func toParams(messages []core.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case core.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return params
}
