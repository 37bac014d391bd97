package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/becomeliminal/vox-go-sdk/memory"
)

// FormatMemoryContext renders a memory search result as the textual context
// block injected into the GENERATE system instruction. The layout is load
// bearing: tests and downstream prompt tuning depend on it byte for byte.
func FormatMemoryContext(results *memory.SearchResults) string {
	if results == nil {
		return ""
	}

	var formatted []string

	if len(results.UserProfile) > 0 {
		profile := results.UserProfile[0]
		formatted = append(formatted, "USER PROFILE:")
		if profile.Name != "" {
			formatted = append(formatted, "- Name: "+profile.Name)
		}
		if profile.Role != "" {
			formatted = append(formatted, "- Role: "+profile.Role)
		}
		if len(profile.Interests) > 0 {
			formatted = append(formatted, "- Interests: "+strings.Join(profile.Interests, ", "))
		}
		if len(profile.Expertise) > 0 {
			formatted = append(formatted, "- Expertise: "+strings.Join(profile.Expertise, ", "))
		}
	}

	if len(results.BusinessKnowledge) > 0 {
		formatted = append(formatted, "\nBUSINESS KNOWLEDGE:")
		for _, entity := range results.BusinessKnowledge {
			formatted = append(formatted, fmt.Sprintf("- %s: %s", capitalize(entity.EntityType), entity.Name))
			// Attribute order is sorted so the block is stable across runs.
			keys := make([]string, 0, len(entity.Attributes))
			for k := range entity.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				formatted = append(formatted, fmt.Sprintf("  * %s: %v", k, entity.Attributes[k]))
			}
		}
	}

	if len(results.ConversationHistory) > 0 {
		formatted = append(formatted, "\nRELEVANT PAST CONVERSATIONS:")
		for _, conversation := range results.ConversationHistory {
			formatted = append(formatted, "- Date: "+conversation.Timestamp.Format("2006-01-02 15:04"))
			messages := conversation.Messages
			if len(messages) > 2 {
				// Just the last exchange.
				messages = messages[len(messages)-2:]
			}
			for _, msg := range messages {
				content := msg.Content
				// Character count, not bytes, so multibyte text is not cut
				// short or split mid-rune.
				if runes := []rune(content); len(runes) > 100 {
					content = string(runes[:100]) + "..."
				}
				formatted = append(formatted, fmt.Sprintf("  * %s: %s", capitalize(string(msg.Role)), content))
			}
		}
	}

	return strings.Join(formatted, "\n")
}

// capitalize uppercases the first letter and lowercases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
