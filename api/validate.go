package api

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/chat_request.json
var chatRequestSchema []byte

var chatSchema = mustCompileSchema(chatRequestSchema)

func mustCompileSchema(raw []byte) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile chat request schema: %v", err))
	}
	return schema
}

// FieldError describes one schema violation in the request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validateChatRequest returns the schema violations of body, sorted by field. A body
// that is not JSON yields a single error on the root field.
func validateChatRequest(body []byte) []FieldError {
	result, err := chatSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return []FieldError{{Field: "(root)", Message: "body is not valid JSON"}}
	}
	if result.Valid() {
		return nil
	}

	out := make([]FieldError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, FieldError{Field: e.Field(), Message: e.Description()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
