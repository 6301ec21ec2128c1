package main

import (
	"path/filepath"
	"testing"

	"report-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistry_Embedded(t *testing.T) {
	reg, err := registry.Load()
	require.NoError(t, err)

	assert.Empty(t, validateRegistry(reg))
}

func TestValidateRegistry_Problems(t *testing.T) {
	reg := &registry.ActivityRegistry{Activities: []registry.Activity{
		{
			ID: "report.document.generate", TaskType: "generate-report", DisplayName: "Generate",
			InputSchema: map[string]interface{}{"type": "object"}, Timeout: "10m",
		},
		{
			ID: "report.document.generate", TaskType: "generate-report", DisplayName: "Again",
			InputSchema: map[string]interface{}{"type": 42}, ErrorCodes: []string{"NOPE"}, Timeout: "soon",
		},
		{ID: "BadName", TaskType: "bad", DisplayName: "Bad", Timeout: "1s"},
	}}

	problems := validateRegistry(reg)

	var messages []string
	for _, p := range problems {
		messages = append(messages, p.Error())
	}
	assert.Contains(t, messages, "duplicate activity ID: report.document.generate")
	assert.Contains(t, messages, "duplicate task type: generate-report")
	assert.Contains(t, messages, "report.document.generate: error code NOPE is never thrown")
	assert.Contains(t, messages, `report.document.generate: invalid timeout "soon"`)
	assert.Contains(t, messages, "BadName: input schema is missing")
	assert.Len(t, problems, 7)
}

func TestUpdateActivity(t *testing.T) {
	reg, err := registry.Load()
	require.NoError(t, err)

	require.NoError(t, updateActivity(reg, "deliver-report", "retries", "5"))
	act, _ := reg.Find("deliver-report")
	assert.Equal(t, 5, act.Retries)
	assert.NotEmpty(t, reg.LastUpdated)

	assert.Error(t, updateActivity(reg, "deliver-report", "timeout", "later"))
	assert.Error(t, updateActivity(reg, "deliver-report", "owner", "x"))
	assert.Error(t, updateActivity(reg, "unknown", "status", "planned"))
}

func TestSaveRegistry_RoundTrip(t *testing.T) {
	reg, err := registry.Load()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "activities.json")

	require.NoError(t, saveRegistry(reg, path))
	loaded, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Activities, len(reg.Activities))
}
