package qbank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// importSchema validates question import payloads before anything
// reaches the store. Schema violations reject the whole batch.
const importSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["exam", "subject", "topic_tag", "difficulty", "text",
		             "option_a", "option_b", "option_c", "option_d", "correct_option"],
		"properties": {
			"exam":           {"type": "string", "enum": ["JEE", "NEET", "OJEE", "UPSC"]},
			"subject":        {"type": "string", "minLength": 1},
			"topic_tag":      {"type": "string"},
			"difficulty":     {"type": "string", "enum": ["Easy", "Medium", "Hard"]},
			"text":           {"type": "string", "minLength": 1},
			"option_a":       {"type": "string", "minLength": 1},
			"option_b":       {"type": "string", "minLength": 1},
			"option_c":       {"type": "string", "minLength": 1},
			"option_d":       {"type": "string", "minLength": 1},
			"correct_option": {"type": "string", "enum": ["A", "B", "C", "D"]},
			"explanation":    {"type": "string"},
			"estimated_time": {"type": "integer", "minimum": 1}
		}
	}
}`

// ImportJSON validates and inserts a JSON array of questions. The batch
// is rejected as a whole when the payload fails schema validation, so a
// partial import never happens silently.
func ImportJSON(ctx context.Context, store Store, data []byte) (int, error) {
	schema := gojsonschema.NewStringLoader(importSchema)
	doc := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schema, doc)
	if err != nil {
		return 0, fmt.Errorf("validating import payload: %w", err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return 0, fmt.Errorf("import payload invalid: %s", strings.Join(issues, "; "))
	}

	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return 0, fmt.Errorf("decoding import payload: %w", err)
	}

	inserted := 0
	for i, q := range questions {
		q.SourceTag = "IMPORT"
		if q.EstimatedTime <= 0 {
			q.EstimatedTime = 60
		}
		if err := store.AddQuestion(ctx, q); err != nil {
			return inserted, fmt.Errorf("inserting question %d: %w", i, err)
		}
		inserted++
	}

	slog.Info("questions imported", "count", inserted)
	return inserted, nil
}
