package script

// JSON schema maps for the generation service's structured-output
// mode. The contract there is strict: every property must appear in
// `required` and unions are not allowed, so every directive field is
// declared nullable and the flat record in codec.go recovers the
// variant discipline after decode.

func nullable(t string) map[string]any {
	return map[string]any{"type": []string{t, "null"}}
}

func DirectiveSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{
				"type": "string",
				"enum": []string{string(TypeWriteText), string(TypeDrawFractionBar), string(TypeErase)},
			},
			"text":              nullable("string"),
			"x":                 nullable("number"),
			"y":                 nullable("number"),
			"speed":             map[string]any{"type": []string{"string", "null"}, "enum": []any{string(SpeedWord), string(SpeedChar), nil}},
			"delay_per_unit_ms": nullable("integer"),
			"numerator":         nullable("integer"),
			"denominator":       nullable("integer"),
			"w":                 nullable("number"),
			"h":                 nullable("number"),
		},
		"required": []string{
			"type", "text", "x", "y", "speed", "delay_per_unit_ms",
			"numerator", "denominator", "w", "h",
		},
		"additionalProperties": false,
	}
}

func chunkSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":          map[string]any{"type": "string"},
			"narration_text": map[string]any{"type": "string"},
			"directives":     map[string]any{"type": "array", "items": DirectiveSchema()},
		},
		"required":             []string{"title", "narration_text", "directives"},
		"additionalProperties": false,
	}
}

func practiceItemSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question":       map[string]any{"type": "string"},
			"options":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 4, "maxItems": 4},
			"correct_answer": map[string]any{"type": "string"},
			"explanation":    map[string]any{"type": "string"},
			"directives":     map[string]any{"type": []string{"array", "null"}, "items": DirectiveSchema()},
		},
		"required":             []string{"question", "options", "correct_answer", "explanation", "directives"},
		"additionalProperties": false,
	}
}

func LessonScriptSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":          map[string]any{"type": "string"},
			"grade_level":    map[string]any{"type": "string"},
			"chunks":         map[string]any{"type": "array", "items": chunkSchema()},
			"practice_items": map[string]any{"type": "array", "items": practiceItemSchema()},
		},
		"required":             []string{"title", "grade_level", "chunks", "practice_items"},
		"additionalProperties": false,
	}
}

// NarrationRewriteSchema is used by the enricher's expansion pass.
func NarrationRewriteSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"narration": map[string]any{"type": "string"},
		},
		"required":             []string{"narration"},
		"additionalProperties": false,
	}
}
