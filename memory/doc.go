// Package memory provides the namespaced, semantically searchable memory
// subsystem of the voice assistant.
//
// Records are partitioned by Namespace, an ordered (kind, user) path tuple,
// so one user's profile, business knowledge, and conversation history never
// collide. Three memory kinds with distinct write policies sit on top of the
// raw store:
//
//   - user profile: a singleton record, update-only
//   - business knowledge: many records, insert-or-update
//   - conversation history: an append-only log plus one fixed-key context record
//
// Architecture:
//   - Store: namespaced key/value storage with vector search (chromem-go for
//     the local SDK, a hosted index in production)
//   - Embedder: text-to-vector conversion (OpenAI embeddings, or the mock
//     embedder for tests)
//   - Extractor: the model-driven policy that turns conversation text into
//     structured record writes
//   - Manager: the stateless facade the pipeline talks to
//
// The Manager owns read/write policy (which namespace, which key, which
// result caps); it never owns storage. The session orchestrator owns the
// Store instance.
package memory
