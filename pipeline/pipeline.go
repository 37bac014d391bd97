// Package pipeline implements the memory-augmented dialogue pipeline: the
// fixed CAPTURE → RETRIEVE → GENERATE → RENDER sequence one conversation
// turn flows through.
//
// Stages run strictly in order within a turn; the only early exit is an
// empty transcript, which short-circuits the turn after an audible retry
// prompt. Memory writes triggered by GENERATE run in a detached task so
// they never delay the spoken response; the orchestrator joins them via
// Wait before closing the turn.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/becomeliminal/vox-go-sdk/core"
	"github.com/becomeliminal/vox-go-sdk/memory"
	"github.com/becomeliminal/vox-go-sdk/voice"
)

// retryPrompt is spoken when no transcript was captured.
const retryPrompt = "I didn't catch that. Could you please try again?"

// systemPromptTemplate is the GENERATE system instruction. The format verbs
// are the memory context block and the user id.
const systemPromptTemplate = `You are a helpful voice assistant with access to the user's personal and business information.

You should use the memory context provided to personalize your responses.

When responding:
1. Be concise and conversational - you are speaking, not writing
2. Use natural language and avoid complex structures
3. Reference relevant information from the user's profile or business knowledge
4. Keep your responses short enough to be easily spoken

Memory context:
%s

User ID: %s`

// Recorder captures one spoken turn and returns its transcript, possibly
// empty when no speech was detected.
type Recorder interface {
	Capture(ctx context.Context) (string, error)
}

// Speaker renders text as speech. Must be a no-op on empty text.
type Speaker interface {
	Speak(ctx context.Context, text string, opts ...voice.SpeakOption) error
}

// Completer issues one completion per GENERATE invocation.
type Completer interface {
	Complete(ctx context.Context, system string, messages []core.Message) (string, error)
}

// Pipeline wires the four stages over the session collaborators.
type Pipeline struct {
	recorder   Recorder
	speaker    Speaker
	completer  Completer
	memory     *memory.Manager
	maxHistory int

	updates sync.WaitGroup
}

// New creates a pipeline. maxHistory bounds how many recent messages the
// completion prompt sees; it defaults to 10.
func New(recorder Recorder, speaker Speaker, completer Completer, manager *memory.Manager, maxHistory int) *Pipeline {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &Pipeline{
		recorder:   recorder,
		speaker:    speaker,
		completer:  completer,
		memory:     manager,
		maxHistory: maxHistory,
	}
}

// Capture records the user and appends a user-role message. It reports
// false when the turn should short-circuit: nothing was captured, a retry
// prompt was spoken, and the state is unchanged.
func (p *Pipeline) Capture(ctx context.Context, state *TurnState) bool {
	log.Printf("[PIPELINE] Recording user input...")

	transcript, err := p.recorder.Capture(ctx)
	if err != nil {
		// Capture failures degrade to the retry prompt; the session goes on.
		log.Printf("[PIPELINE] Capture failed: %v", err)
		transcript = ""
	}

	if transcript == "" {
		if err := p.speaker.Speak(ctx, retryPrompt); err != nil {
			log.Printf("[PIPELINE] Retry prompt failed: %v", err)
		}
		return false
	}

	state.Messages = append(state.Messages, core.User(transcript))
	log.Printf("[PIPELINE] User input: %s", transcript)
	return true
}

// Retrieve searches memory using the most recent user message as the query.
// With no user message yet, the result set is empty, not an error.
func (p *Pipeline) Retrieve(ctx context.Context, state *TurnState) error {
	log.Printf("[PIPELINE] Searching memory...")

	query, ok := state.lastUserMessage()
	if !ok {
		state.MemoryResults = memory.EmptySearchResults()
		return nil
	}

	results, err := p.memory.SearchMemory(ctx, query, state.UserID)
	if err != nil {
		return err
	}
	state.MemoryResults = results
	return nil
}

// Generate produces the assistant's response: it formats retrieved memory
// into the system instruction, issues one completion over the recent
// messages, appends the assistant message, derives the speech-optimized
// rendering, and kicks off the detached memory update. A completion failure
// is fatal to the turn; no partial response is spoken.
func (p *Pipeline) Generate(ctx context.Context, state *TurnState) error {
	if len(state.Messages) == 0 {
		return nil
	}

	log.Printf("[PIPELINE] Generating response...")

	memoryContext := FormatMemoryContext(state.MemoryResults)
	system := fmt.Sprintf(systemPromptTemplate, memoryContext, state.UserID)

	recent := state.Messages
	if len(recent) > p.maxHistory {
		recent = recent[len(recent)-p.maxHistory:]
	}

	text, err := p.completer.Complete(ctx, system, recent)
	if err != nil {
		return fmt.Errorf("generate response: %w", err)
	}

	state.Messages = append(state.Messages, core.Assistant(text))
	state.SpokenResponse = voice.OptimizeForSpeech(text)
	log.Printf("[PIPELINE] Generated response: %s", truncateLog(text, 100))

	// Memory writes must not delay the spoken response. The snapshot keeps
	// the detached task safe against further state mutation.
	snapshot := make([]core.Message, len(state.Messages))
	copy(snapshot, state.Messages)
	p.updates.Add(1)
	go func() {
		defer p.updates.Done()
		p.updateMemory(ctx, snapshot, state.UserID)
	}()

	return nil
}

// updateMemory commits the turn's memory writes. Failures are logged and
// never propagate: eventual consistency of memory is acceptable, a lost
// response is not.
func (p *Pipeline) updateMemory(ctx context.Context, messages []core.Message, userID string) {
	log.Printf("[MEMORY] Updating memory...")

	if err := p.memory.UpdateUserProfile(ctx, messages, userID); err != nil {
		log.Printf("[MEMORY] Profile update failed: %v", err)
	}
	if err := p.memory.UpdateBusinessKnowledge(ctx, messages, userID); err != nil {
		log.Printf("[MEMORY] Business knowledge update failed: %v", err)
	}
	if err := p.memory.SaveConversation(ctx, messages, userID); err != nil {
		log.Printf("[MEMORY] Conversation save failed: %v", err)
	}
}

// Render speaks the generated response. No response means no-op. Synthesis
// failures are logged, not fatal: the turn's work is already committed.
func (p *Pipeline) Render(ctx context.Context, state *TurnState) {
	if state.SpokenResponse == "" {
		return
	}
	if err := p.speaker.Speak(ctx, state.SpokenResponse); err != nil {
		log.Printf("[PIPELINE] Speech output failed: %v", err)
	}
}

// RunTurn drives one full turn through the four stages.
func (p *Pipeline) RunTurn(ctx context.Context, state *TurnState) error {
	if !p.Capture(ctx, state) {
		return nil
	}
	if err := p.Retrieve(ctx, state); err != nil {
		return err
	}
	if err := p.Generate(ctx, state); err != nil {
		return err
	}
	p.Render(ctx, state)
	return nil
}

// Wait blocks until detached memory updates have finished. The orchestrator
// calls this before considering a turn closed.
func (p *Pipeline) Wait() {
	p.updates.Wait()
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
