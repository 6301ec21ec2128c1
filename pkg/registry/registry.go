// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed activities.json
var embeddedActivities []byte

// Load returns the activity registry compiled into the binary.
func Load() (*ActivityRegistry, error) {
	return parse(embeddedActivities)
}

// LoadRegistry reads a registry file from disk, e.g. an operator-supplied override.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	return &reg, nil
}

// Find looks up the activity registered for a Zeebe task type.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// InputSchema returns the input schema of a task type or an error naming the unknown type.
func (r *ActivityRegistry) InputSchema(taskType string) (map[string]interface{}, error) {
	act, ok := r.Find(taskType)
	if !ok {
		return nil, fmt.Errorf("activity %q is not registered", taskType)
	}
	if act.InputSchema == nil {
		return nil, fmt.Errorf("activity %q has no input schema", taskType)
	}
	return act.InputSchema, nil
}

// PropertySchema returns the schema of one top-level input property, e.g. the briefing
// object accepted by generate-report.
func (r *ActivityRegistry) PropertySchema(taskType, property string) (map[string]interface{}, error) {
	schema, err := r.InputSchema(taskType)
	if err != nil {
		return nil, err
	}
	props, _ := schema["properties"].(map[string]interface{})
	prop, ok := props[property].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("activity %q has no input property %q", taskType, property)
	}
	return prop, nil
}
