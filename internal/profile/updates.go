package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed memory_updates.schema.json
var updatesSchemaJSON string

const updatesSchemaName = "memory_updates.schema.json"

var updatesSchema = mustCompileSchema(updatesSchemaJSON, updatesSchemaName)

// updateBlock matches a fenced json block carrying a memory_updates object.
var updateBlock = regexp.MustCompile("(?s)```json\\s*(\\{.*?\"memory_updates\".*?\\})\\s*```")

// Replacement rewrites the fact matching Old.
type Replacement struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Updates is the edit list the model returns for the profile.
type Updates struct {
	Add    []string      `json:"add"`
	Remove []string      `json:"remove"`
	Update []Replacement `json:"update"`
}

// Empty reports whether the update list holds no operations.
func (u Updates) Empty() bool {
	return len(u.Add) == 0 && len(u.Remove) == 0 && len(u.Update) == 0
}

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return schema
}

// Extract finds the memory_updates block in content and returns the content
// without it. A nil Updates means the response carried no block. When the
// block is malformed the content is returned unchanged with the error.
func Extract(content string) (string, *Updates, error) {
	match := updateBlock.FindStringSubmatch(content)
	if match == nil {
		return content, nil, nil
	}

	var doc any
	if err := json.Unmarshal([]byte(match[1]), &doc); err != nil {
		return content, nil, fmt.Errorf("parse memory updates: %w", err)
	}
	if err := updatesSchema.Validate(doc); err != nil {
		return content, nil, fmt.Errorf("validate memory updates: %w", err)
	}
	var envelope struct {
		MemoryUpdates Updates `json:"memory_updates"`
	}
	if err := json.Unmarshal([]byte(match[1]), &envelope); err != nil {
		return content, nil, fmt.Errorf("decode memory updates: %w", err)
	}

	cleaned := strings.TrimSpace(strings.Replace(content, match[0], "", 1))
	return cleaned, &envelope.MemoryUpdates, nil
}
