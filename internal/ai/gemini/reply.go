package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	fallbackSummary = "Resume optimized successfully"
	fallbackChange  = "Resume has been tailored to match the job requirements"
)

const replySchema = `{
  "type": "object",
  "required": ["optimized_content"],
  "properties": {
    "optimized_content": {"type": "string", "minLength": 1},
    "summary": {"type": "string"},
    "changes": {"type": "array", "items": {"type": "string"}}
  }
}`

var replySchemaLoader = gojsonschema.NewStringLoader(replySchema)

type reply struct {
	Content string
	Summary string
	Changes []string
}

// parseReply reads the JSON object of a model reply. A reply without a JSON
// object is taken as the resume text itself.
func parseReply(raw string) (*reply, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty reply")
	}

	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return &reply{
			Content: raw,
			Summary: fallbackSummary,
			Changes: []string{fallbackChange},
		}, nil
	}

	result, err := gojsonschema.Validate(replySchemaLoader, gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate reply: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("reply does not match schema: %s", strings.Join(problems, "; "))
	}

	out := &reply{
		Content: strings.TrimSpace(coerceString(data["optimized_content"])),
		Summary: coerceString(data["summary"]),
		Changes: coerceStrings(data["changes"]),
	}

	if out.Content == "" {
		return nil, errors.New("reply has blank optimized_content")
	}

	return out, nil
}

// extractJSON strips code fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return strings.TrimSpace(raw)
	}

	return raw[start : end+1]
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
