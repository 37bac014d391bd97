package memory

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/becomeliminal/vox-go-sdk/core"
)

// Config holds the Manager's namespace labels, well-known keys, and
// per-kind search caps. All values are static for a session.
type Config struct {
	// DefaultUserID is substituted when a call passes an empty user id.
	DefaultUserID string

	// Namespace labels, one per memory kind.
	ProfileNamespace      string
	BusinessNamespace     string
	ConversationNamespace string

	// ProfileKey is the well-known key the singleton profile record is
	// created under when no profile exists yet.
	ProfileKey string

	// ContextKey is the fixed key of the conversation-context record.
	ContextKey string

	// Per-kind result caps for SearchMemory.
	ProfileLimit      int
	BusinessLimit     int
	ConversationLimit int
}

// DefaultConfig returns the standard namespace layout and search caps.
var DefaultConfig = &Config{
	DefaultUserID:         "default-user",
	ProfileNamespace:      "user_profile",
	BusinessNamespace:     "business_knowledge",
	ConversationNamespace: "conversation_history",
	ProfileKey:            "profile",
	ContextKey:            "context",
	ProfileLimit:          1,
	BusinessLimit:         5,
	ConversationLimit:     3,
}

// Manager is the stateless read/write facade over the memory store.
// It owns policy (which namespace, which key, which caps) and delegates
// all structured extraction judgment to the configured Extractors.
// It never owns storage; the session orchestrator does.
type Manager struct {
	store             Store
	profileExtractor  Extractor
	businessExtractor Extractor
	config            *Config
	now               func() time.Time
}

// NewManager creates a Manager over store. Either extractor may be nil, in
// which case the corresponding update call is a logged no-op.
func NewManager(store Store, profile, business Extractor, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig
	}
	return &Manager{
		store:             store,
		profileExtractor:  profile,
		businessExtractor: business,
		config:            config,
		now:               time.Now,
	}
}

// SearchResults groups one memory search across all three kinds.
// Slices are always non-nil; kinds with no hits are empty, never absent.
type SearchResults struct {
	UserProfile         []UserProfile
	BusinessKnowledge   []BusinessEntity
	ConversationHistory []ConversationRecord
}

// EmptySearchResults returns a result set with no hits in any kind.
func EmptySearchResults() *SearchResults {
	return &SearchResults{
		UserProfile:         []UserProfile{},
		BusinessKnowledge:   []BusinessEntity{},
		ConversationHistory: []ConversationRecord{},
	}
}

func (m *Manager) userID(userID string) string {
	if userID == "" {
		return m.config.DefaultUserID
	}
	return userID
}

// GetUserProfile returns the user's profile, or nil when none is stored yet.
func (m *Manager) GetUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	ns := NewNamespace(m.config.ProfileNamespace, m.userID(userID))
	records, err := m.store.Search(ctx, ns, SearchOptions{})
	if err != nil {
		return nil, &StoreError{Namespace: ns, Op: "search", Err: err}
	}
	if len(records) == 0 {
		return nil, nil
	}

	var profile UserProfile
	if err := decodeStrict(records[0].Value, &profile); err != nil {
		return nil, &SchemaMismatchError{Namespace: ns, Key: records[0].Key, Schema: "UserProfile", Err: err}
	}
	return &profile, nil
}

// UpdateUserProfile runs the profile extraction policy against the full
// message history in update-only mode. Repeated invocation against the same
// final conversation converges to the same stored profile; it never creates
// a second profile record.
func (m *Manager) UpdateUserProfile(ctx context.Context, messages []core.Message, userID string) error {
	if m.profileExtractor == nil {
		log.Printf("[MEMORY] No profile extractor configured, skipping update")
		return nil
	}
	return m.profileExtractor.Invoke(ctx, messages, m.userID(userID))
}

// GetBusinessEntities returns the user's business entities: a semantic
// search when query is given, a full namespace scan otherwise.
func (m *Manager) GetBusinessEntities(ctx context.Context, query, userID string) ([]BusinessEntity, error) {
	ns := NewNamespace(m.config.BusinessNamespace, m.userID(userID))
	records, err := m.store.Search(ctx, ns, SearchOptions{Query: query})
	if err != nil {
		return nil, &StoreError{Namespace: ns, Op: "search", Err: err}
	}

	entities := make([]BusinessEntity, 0, len(records))
	for _, rec := range records {
		var entity BusinessEntity
		if err := decodeStrict(rec.Value, &entity); err != nil {
			return nil, &SchemaMismatchError{Namespace: ns, Key: rec.Key, Schema: "BusinessEntity", Err: err}
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// UpdateBusinessKnowledge runs the business extraction policy in
// insert-or-update mode. Entity resolution is the policy's judgment; the
// policy sees the existing entities in the namespace so merges are grounded.
func (m *Manager) UpdateBusinessKnowledge(ctx context.Context, messages []core.Message, userID string) error {
	if m.businessExtractor == nil {
		log.Printf("[MEMORY] No business extractor configured, skipping update")
		return nil
	}
	return m.businessExtractor.Invoke(ctx, messages, m.userID(userID))
}

// SaveConversation appends the conversation to the history log under a
// freshly generated key. Prior turns are never overwritten.
func (m *Manager) SaveConversation(ctx context.Context, messages []core.Message, userID string) error {
	ns := NewNamespace(m.config.ConversationNamespace, m.userID(userID))
	record := ConversationRecord{
		Timestamp: m.now(),
		Messages:  messages,
	}
	if err := m.store.Put(ctx, ns, uuid.New().String(), record); err != nil {
		return &StoreError{Namespace: ns, Op: "put", Err: err}
	}
	return nil
}

// GetConversationContext reads the fixed-key context record. On first access
// it creates and persists a default context, so the context always exists
// after this call returns.
func (m *Manager) GetConversationContext(ctx context.Context, userID string) (*ConversationContext, error) {
	ns := NewNamespace(m.config.ConversationNamespace, m.userID(userID))
	records, err := m.store.Search(ctx, ns, SearchOptions{Key: m.config.ContextKey})
	if err != nil {
		return nil, &StoreError{Namespace: ns, Op: "search", Err: err}
	}

	if len(records) > 0 {
		var context ConversationContext
		if err := decodeStrict(records[0].Value, &context); err != nil {
			return nil, &SchemaMismatchError{Namespace: ns, Key: records[0].Key, Schema: "ConversationContext", Err: err}
		}
		return &context, nil
	}

	context := NewConversationContext()
	if err := m.store.Put(ctx, ns, m.config.ContextKey, context); err != nil {
		return nil, &StoreError{Namespace: ns, Op: "put", Err: err}
	}
	return context, nil
}

// UpdateConversationContext overwrites the fixed-key context record.
func (m *Manager) UpdateConversationContext(ctx context.Context, context *ConversationContext, userID string) error {
	ns := NewNamespace(m.config.ConversationNamespace, m.userID(userID))
	if err := m.store.Put(ctx, ns, m.config.ContextKey, context); err != nil {
		return &StoreError{Namespace: ns, Op: "put", Err: err}
	}
	return nil
}

// SearchMemory fans one query out across all three memory kinds with
// per-kind result caps. The conversation-context record is excluded from
// conversation-history results.
func (m *Manager) SearchMemory(ctx context.Context, query, userID string) (*SearchResults, error) {
	uid := m.userID(userID)
	results := EmptySearchResults()

	profileNS := NewNamespace(m.config.ProfileNamespace, uid)
	profileRecords, err := m.store.Search(ctx, profileNS, SearchOptions{Query: query, Limit: m.config.ProfileLimit})
	if err != nil {
		return nil, &StoreError{Namespace: profileNS, Op: "search", Err: err}
	}
	for _, rec := range profileRecords {
		var profile UserProfile
		if err := decodeStrict(rec.Value, &profile); err != nil {
			return nil, &SchemaMismatchError{Namespace: profileNS, Key: rec.Key, Schema: "UserProfile", Err: err}
		}
		results.UserProfile = append(results.UserProfile, profile)
	}

	businessNS := NewNamespace(m.config.BusinessNamespace, uid)
	businessRecords, err := m.store.Search(ctx, businessNS, SearchOptions{Query: query, Limit: m.config.BusinessLimit})
	if err != nil {
		return nil, &StoreError{Namespace: businessNS, Op: "search", Err: err}
	}
	for _, rec := range businessRecords {
		var entity BusinessEntity
		if err := decodeStrict(rec.Value, &entity); err != nil {
			return nil, &SchemaMismatchError{Namespace: businessNS, Key: rec.Key, Schema: "BusinessEntity", Err: err}
		}
		results.BusinessKnowledge = append(results.BusinessKnowledge, entity)
	}

	conversationNS := NewNamespace(m.config.ConversationNamespace, uid)
	conversationRecords, err := m.store.Search(ctx, conversationNS, SearchOptions{Query: query, Limit: m.config.ConversationLimit})
	if err != nil {
		return nil, &StoreError{Namespace: conversationNS, Op: "search", Err: err}
	}
	for _, rec := range conversationRecords {
		if rec.Key == m.config.ContextKey {
			continue
		}
		var conversation ConversationRecord
		if err := decodeStrict(rec.Value, &conversation); err != nil {
			return nil, &SchemaMismatchError{Namespace: conversationNS, Key: rec.Key, Schema: "ConversationRecord", Err: err}
		}
		results.ConversationHistory = append(results.ConversationHistory, conversation)
	}

	return results, nil
}
