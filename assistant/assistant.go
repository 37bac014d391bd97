// Package assistant wires the dialogue pipeline, memory subsystem, and
// external collaborators into a session and drives sequential turns.
package assistant

import (
	"context"
	"fmt"
	"log"

	"github.com/becomeliminal/vox-go-sdk/memory"
	"github.com/becomeliminal/vox-go-sdk/pipeline"
)

// Collaborators groups the external services a session is built from. The
// Store is handed over, not shared: the Assistant owns it for the session
// lifetime and closes it on Close.
type Collaborators struct {
	Recorder  pipeline.Recorder
	Speaker   pipeline.Speaker
	Completer pipeline.Completer
	Store     memory.Store

	// Extraction policies. Either may be nil, disabling that memory kind's
	// updates.
	ProfileExtractor  memory.Extractor
	BusinessExtractor memory.Extractor
}

// Assistant is the session orchestrator: it owns the memory store, wires the
// four pipeline stages in fixed order, and runs turns strictly one after
// another, carrying the turn state forward so later turns see memory
// committed by earlier ones.
type Assistant struct {
	config   *Config
	store    memory.Store
	manager  *memory.Manager
	pipeline *pipeline.Pipeline
	state    *pipeline.TurnState
}

// New creates a session for the configured default user.
func New(config *Config, c Collaborators) (*Assistant, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if c.Store == nil {
		return nil, fmt.Errorf("assistant requires a memory store")
	}
	if c.Recorder == nil || c.Speaker == nil || c.Completer == nil {
		return nil, fmt.Errorf("assistant requires recorder, speaker, and completer")
	}

	manager := memory.NewManager(c.Store, c.ProfileExtractor, c.BusinessExtractor, &memory.Config{
		DefaultUserID:         config.DefaultUserID,
		ProfileNamespace:      config.ProfileNamespace,
		BusinessNamespace:     config.BusinessNamespace,
		ConversationNamespace: config.ConversationNamespace,
		ProfileKey:            memory.DefaultConfig.ProfileKey,
		ContextKey:            memory.DefaultConfig.ContextKey,
		ProfileLimit:          memory.DefaultConfig.ProfileLimit,
		BusinessLimit:         memory.DefaultConfig.BusinessLimit,
		ConversationLimit:     memory.DefaultConfig.ConversationLimit,
	})

	pipe := pipeline.New(c.Recorder, c.Speaker, c.Completer, manager, config.MaxConversationHistory)

	return &Assistant{
		config:   config,
		store:    c.Store,
		manager:  manager,
		pipeline: pipe,
		state:    pipeline.NewTurnState(config.DefaultUserID),
	}, nil
}

// Run drives the given number of sequential conversation turns. A failed turn is logged
// and the session continues; the next capture starts fresh. Memory writes
// from each turn are joined before the next turn begins, so retrieval in
// turn N+1 sees what turn N committed.
func (a *Assistant) Run(ctx context.Context, turns int) error {
	log.Printf("[ASSISTANT] Starting session for user %s", a.config.DefaultUserID)

	for i := 0; i < turns; i++ {
		log.Printf("[ASSISTANT] Turn %d/%d", i+1, turns)

		if err := a.pipeline.RunTurn(ctx, a.state); err != nil {
			log.Printf("[ASSISTANT] Turn %d failed: %v", i+1, err)
		}

		// The turn is not closed until its memory writes have settled.
		a.pipeline.Wait()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	log.Printf("[ASSISTANT] Session ended after %d turn(s)", turns)
	return nil
}

// State exposes the session's turn state, mainly for inspection in tests
// and tooling.
func (a *Assistant) State() *pipeline.TurnState {
	return a.state
}

// Memory exposes the session's memory manager.
func (a *Assistant) Memory() *memory.Manager {
	return a.manager
}

// Close releases the session's memory store.
func (a *Assistant) Close() error {
	return a.store.Close()
}
