package extraction

// Schema helpers for building the JSON Schema definitions handed to the
// model's upsert tool.

// ObjectSchema creates an object schema with the given properties.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty creates a string property with a description.
func StringProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

// StringEnumProperty creates a string property with allowed values.
func StringEnumProperty(description string, values ...string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

// NumberProperty creates a number property with a description.
func NumberProperty(description string) map[string]any {
	return map[string]any{
		"type":        "number",
		"description": description,
	}
}

// BooleanProperty creates a boolean property with a description.
func BooleanProperty(description string) map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": description,
	}
}

// ArrayProperty creates an array property with the given item type.
func ArrayProperty(description string, itemType map[string]any) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       itemType,
	}
}

// MapProperty creates a free-form object property.
func MapProperty(description string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"description":          description,
		"additionalProperties": true,
	}
}

// UserProfileSchema describes the UserProfile record shape.
func UserProfileSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"name": StringProperty("The user's name."),
		"role": StringProperty("The user's job or role, e.g. \"software developer\"."),
		"communication_preferences": MapProperty(
			"How the user prefers to communicate (channel, tone, timing)."),
		"interests": ArrayProperty("Topics the user is interested in.",
			StringProperty("One interest.")),
		"expertise": ArrayProperty("Areas the user is skilled in.",
			StringProperty("One area of expertise.")),
		"voice_preferences": ObjectSchema(map[string]any{
			"preferred_voice": StringProperty("Preferred synthesis voice."),
			"speaking_rate":   NumberProperty("Speaking rate multiplier, 1.0 is normal."),
			"verbosity_level": StringEnumProperty("How detailed spoken responses should be.",
				"concise", "medium", "detailed"),
			"interruption_handling": StringEnumProperty("What to do when the user interrupts.",
				"ignore", "pause", "complete"),
			"confirmation_required": ArrayProperty(
				"Actions that require verbal confirmation before executing.",
				StringProperty("One action.")),
		}),
	})
}

// BusinessEntitySchema describes the BusinessEntity record shape.
func BusinessEntitySchema() map[string]any {
	return ObjectSchema(map[string]any{
		"name":        StringProperty("The entity's name."),
		"entity_type": StringProperty("Free-form classification: person, project, team, event, ..."),
		"attributes":  MapProperty("Facts about the entity as key/value pairs."),
		"relationships": ArrayProperty(
			"Directed typed links to other entities.",
			ObjectSchema(map[string]any{
				"relation": StringProperty("The relationship type, e.g. \"reports_to\"."),
				"target":   StringProperty("The name of the related entity."),
			}, "relation", "target")),
	}, "name", "entity_type")
}
