// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/validation"
	"report-workers/pkg/registry"
)

const defaultRegistryPath = "pkg/registry/activities.json"

func main() {
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	taskType := updateCmd.String("taskType", "", "Task type of the activity to update")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "update":
		_ = updateCmd.Parse(os.Args[2:])
		if *taskType == "" || *field == "" || *value == "" {
			fmt.Println("Error: taskType, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		reg, err := registry.LoadRegistry(*updatePath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		if err := updateActivity(reg, *taskType, *field, *value); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		if err := saveRegistry(reg, *updatePath); err != nil {
			fmt.Printf("Error saving registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *taskType, *field, *value)

	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*validatePath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		problems := validateRegistry(reg)
		if len(problems) > 0 {
			fmt.Println("Registry validation failed:")
			for _, p := range problems {
				fmt.Printf("  - %v\n", p)
			}
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	default:
		help()
	}
}

func updateActivity(reg *registry.ActivityRegistry, taskType, field, value string) error {
	act, ok := reg.Find(taskType)
	if !ok {
		return fmt.Errorf("activity %s not found", taskType)
	}

	switch field {
	case "status":
		act.ImplementationStatus = value
	case "version":
		act.Version = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		act.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		act.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// validateRegistry collects every problem instead of stopping at the first one.
func validateRegistry(reg *registry.ActivityRegistry) []error {
	var problems []error
	if len(reg.Activities) == 0 {
		return []error{errors.New("registry contains no activities")}
	}

	knownCodes := make(map[string]bool)
	for _, code := range apperrors.BPMNErrorMapping {
		knownCodes[code] = true
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, act := range reg.Activities {
		if act.ID == "" || act.TaskType == "" || act.DisplayName == "" {
			problems = append(problems, fmt.Errorf("activity %q: id, taskType and displayName are required", act.ID))
			continue
		}
		if ids[act.ID] {
			problems = append(problems, fmt.Errorf("duplicate activity ID: %s", act.ID))
		}
		ids[act.ID] = true
		if taskTypes[act.TaskType] {
			problems = append(problems, fmt.Errorf("duplicate task type: %s", act.TaskType))
		}
		taskTypes[act.TaskType] = true

		if err := validation.ValidateActivityNaming(act.ID); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", act.ID, err))
		}
		if act.InputSchema == nil {
			problems = append(problems, fmt.Errorf("%s: input schema is missing", act.ID))
		} else if _, err := validation.ValidateInput(map[string]interface{}{}, act.InputSchema); err != nil {
			problems = append(problems, fmt.Errorf("%s: input schema does not compile: %w", act.ID, err))
		}
		for _, code := range act.ErrorCodes {
			if !knownCodes[code] {
				problems = append(problems, fmt.Errorf("%s: error code %s is never thrown", act.ID, code))
			}
		}
		if _, err := time.ParseDuration(act.Timeout); err != nil {
			problems = append(problems, fmt.Errorf("%s: invalid timeout %q", act.ID, act.Timeout))
		}
	}
	return problems
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  update    Update a field of an existing activity
  validate  Check naming, schemas, error codes and timeouts
  help      Show this help message

Examples:
  registry-updater update -taskType deliver-report -field timeout -value 5m
  registry-updater validate -path pkg/registry/activities.json`)
}
