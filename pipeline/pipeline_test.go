package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/becomeliminal/vox-go-sdk/core"
	"github.com/becomeliminal/vox-go-sdk/memory"
	"github.com/becomeliminal/vox-go-sdk/memory/embedder/mock"
	chromemstore "github.com/becomeliminal/vox-go-sdk/memory/store/chromem"
	"github.com/becomeliminal/vox-go-sdk/pipeline"
	"github.com/becomeliminal/vox-go-sdk/voice"
)

const retryPrompt = "I didn't catch that. Could you please try again?"

type fakeRecorder struct {
	transcripts []string
	err         error
	calls       int
}

func (r *fakeRecorder) Capture(ctx context.Context) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	if len(r.transcripts) == 0 {
		return "", nil
	}
	next := r.transcripts[0]
	r.transcripts = r.transcripts[1:]
	return next, nil
}

type fakeSpeaker struct {
	spoken []string
	err    error
}

func (s *fakeSpeaker) Speak(ctx context.Context, text string, opts ...voice.SpeakOption) error {
	s.spoken = append(s.spoken, text)
	return s.err
}

type fakeCompleter struct {
	response string
	err      error
	systems  []string
	messages [][]core.Message
}

func (c *fakeCompleter) Complete(ctx context.Context, system string, messages []core.Message) (string, error) {
	c.systems = append(c.systems, system)
	snapshot := make([]core.Message, len(messages))
	copy(snapshot, messages)
	c.messages = append(c.messages, snapshot)
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type fixture struct {
	recorder  *fakeRecorder
	speaker   *fakeSpeaker
	completer *fakeCompleter
	store     memory.Store
	pipeline  *pipeline.Pipeline
	state     *pipeline.TurnState
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := chromemstore.New(mock.New())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	recorder := &fakeRecorder{}
	speaker := &fakeSpeaker{}
	completer := &fakeCompleter{response: "Happy to help."}
	manager := memory.NewManager(store, nil, nil, nil)
	return &fixture{
		recorder:  recorder,
		speaker:   speaker,
		completer: completer,
		store:     store,
		pipeline:  pipeline.New(recorder, speaker, completer, manager, 10),
		state:     pipeline.NewTurnState("default-user"),
	}
}

func TestRunTurn(t *testing.T) {
	f := newFixture(t)
	f.recorder.transcripts = []string{"what is the status of Atlas?"}

	if err := f.pipeline.RunTurn(context.Background(), f.state); err != nil {
		t.Fatalf("run turn: %v", err)
	}
	f.pipeline.Wait()

	if len(f.state.Messages) != 2 {
		t.Fatalf("state has %d messages, want user and assistant", len(f.state.Messages))
	}
	if f.state.Messages[0].Role != core.RoleUser || f.state.Messages[1].Role != core.RoleAssistant {
		t.Errorf("message roles = %v, %v", f.state.Messages[0].Role, f.state.Messages[1].Role)
	}
	if f.state.MemoryResults == nil {
		t.Error("retrieve should always leave a result set")
	}
	if len(f.speaker.spoken) != 1 || f.speaker.spoken[0] != "Happy to help." {
		t.Errorf("spoken = %v, want the generated response", f.speaker.spoken)
	}

	// The turn's conversation lands in the history log once Wait returns.
	ns := memory.NewNamespace("conversation_history", "default-user")
	records, err := f.store.Search(context.Background(), ns, memory.SearchOptions{})
	if err != nil {
		t.Fatalf("scan history: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("history has %d records after one turn, want 1", len(records))
	}
}

func TestEmptyTranscriptShortCircuits(t *testing.T) {
	f := newFixture(t)
	// Recorder yields no transcript at all.

	if err := f.pipeline.RunTurn(context.Background(), f.state); err != nil {
		t.Fatalf("run turn: %v", err)
	}
	f.pipeline.Wait()

	if len(f.state.Messages) != 0 {
		t.Errorf("state gained %d messages from an empty capture", len(f.state.Messages))
	}
	if len(f.completer.systems) != 0 {
		t.Error("completer must not run on an empty transcript")
	}
	if len(f.speaker.spoken) != 1 || f.speaker.spoken[0] != retryPrompt {
		t.Errorf("spoken = %v, want only the retry prompt", f.speaker.spoken)
	}

	ns := memory.NewNamespace("conversation_history", "default-user")
	records, _ := f.store.Search(context.Background(), ns, memory.SearchOptions{})
	if len(records) != 0 {
		t.Error("an empty turn must not be logged to history")
	}
}

func TestCaptureErrorDegradesToRetry(t *testing.T) {
	f := newFixture(t)
	f.recorder.err = errors.New("microphone unplugged")

	if err := f.pipeline.RunTurn(context.Background(), f.state); err != nil {
		t.Fatalf("capture errors should not fail the turn: %v", err)
	}
	if len(f.speaker.spoken) != 1 || f.speaker.spoken[0] != retryPrompt {
		t.Errorf("spoken = %v, want the retry prompt", f.speaker.spoken)
	}
	if len(f.completer.systems) != 0 {
		t.Error("completer must not run after a failed capture")
	}
}

func TestGenerateFailureIsFatalToTurn(t *testing.T) {
	f := newFixture(t)
	f.recorder.transcripts = []string{"hello"}
	f.completer.err = errors.New("rate limited")

	err := f.pipeline.RunTurn(context.Background(), f.state)
	if err == nil {
		t.Fatal("expected the turn to fail on a completion error")
	}
	f.pipeline.Wait()

	if f.state.SpokenResponse != "" {
		t.Error("no partial response may be spoken")
	}
	if len(f.speaker.spoken) != 0 {
		t.Errorf("spoken = %v, want nothing", f.speaker.spoken)
	}
}

func TestGenerateInjectsMemoryContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profileNS := memory.NewNamespace("user_profile", "default-user")
	profile := memory.UserProfile{Name: "Aaron", Role: "developer"}
	if err := f.store.Put(ctx, profileNS, "profile", profile); err != nil {
		t.Fatalf("put profile: %v", err)
	}

	f.recorder.transcripts = []string{"what does the developer Aaron like?"}
	if err := f.pipeline.RunTurn(ctx, f.state); err != nil {
		t.Fatalf("run turn: %v", err)
	}
	f.pipeline.Wait()

	if len(f.completer.systems) != 1 {
		t.Fatalf("completer ran %d times, want 1", len(f.completer.systems))
	}
	system := f.completer.systems[0]
	if !strings.Contains(system, "- Name: Aaron") {
		t.Errorf("system prompt missing profile context:\n%s", system)
	}
	if !strings.Contains(system, "User ID: default-user") {
		t.Errorf("system prompt missing user id:\n%s", system)
	}
}

func TestGenerateOptimizesForSpeech(t *testing.T) {
	f := newFixture(t)
	f.recorder.transcripts = []string{"where are the docs?"}
	f.completer.response = "See **the docs** at https://example.com/docs for details."

	if err := f.pipeline.RunTurn(context.Background(), f.state); err != nil {
		t.Fatalf("run turn: %v", err)
	}
	f.pipeline.Wait()

	spoken := f.state.SpokenResponse
	if strings.Contains(spoken, "https://") || strings.Contains(spoken, "**") {
		t.Errorf("spoken response not speech-safe: %q", spoken)
	}
	if !strings.Contains(spoken, "link") {
		t.Errorf("URL should be spoken as %q, got %q", "link", spoken)
	}
	// The full text stays in history untouched.
	last := f.state.Messages[len(f.state.Messages)-1]
	if !strings.Contains(last.Content, "https://example.com/docs") {
		t.Errorf("history lost the original text: %q", last.Content)
	}
}

func TestGenerateTrimsHistory(t *testing.T) {
	f := newFixture(t)
	manager := memory.NewManager(f.store, nil, nil, nil)
	short := pipeline.New(f.recorder, f.speaker, f.completer, manager, 2)

	state := pipeline.NewTurnState("default-user")
	state.Messages = []core.Message{
		core.User("one"),
		core.Assistant("two"),
		core.User("three"),
	}

	if err := short.Generate(context.Background(), state); err != nil {
		t.Fatalf("generate: %v", err)
	}
	short.Wait()

	if len(f.completer.messages) != 1 {
		t.Fatalf("completer ran %d times, want 1", len(f.completer.messages))
	}
	sent := f.completer.messages[0]
	if len(sent) != 2 {
		t.Fatalf("completer saw %d messages, want the 2 most recent", len(sent))
	}
	if sent[0].Content != "two" || sent[1].Content != "three" {
		t.Errorf("completer saw %v, want the tail of the conversation", sent)
	}
}

func TestRetrieveWithoutUserMessage(t *testing.T) {
	f := newFixture(t)

	if err := f.pipeline.Retrieve(context.Background(), f.state); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	results := f.state.MemoryResults
	if results == nil {
		t.Fatal("retrieve must leave a result set")
	}
	if results.UserProfile == nil || results.BusinessKnowledge == nil || results.ConversationHistory == nil {
		t.Error("result slices must be non-nil")
	}
}

func TestGenerateWithoutMessagesIsNoOp(t *testing.T) {
	f := newFixture(t)

	if err := f.pipeline.Generate(context.Background(), f.state); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(f.completer.systems) != 0 {
		t.Error("completer must not run with no conversation")
	}
}

func TestRenderSwallowsSpeakerError(t *testing.T) {
	f := newFixture(t)
	f.speaker.err = errors.New("audio device busy")
	f.state.SpokenResponse = "hello"

	f.pipeline.Render(context.Background(), f.state)

	if len(f.speaker.spoken) != 1 {
		t.Errorf("speaker called %d times, want 1", len(f.speaker.spoken))
	}
}

func TestRenderEmptyResponseIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.pipeline.Render(context.Background(), f.state)
	if len(f.speaker.spoken) != 0 {
		t.Errorf("speaker called on empty response: %v", f.speaker.spoken)
	}
}
