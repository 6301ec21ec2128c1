// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"report-workers/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name         string
	PackageName  string
	TaskType     string
	Description  string
	Timeout      string
	InputFields  string
	OutputFields string
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schemaObj interface{}) map[string]interface{} {
	if schemaMap, ok := schemaObj.(map[string]interface{}); ok {
		if properties, ok := schemaMap["properties"].(map[string]interface{}); ok {
			return properties
		}
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "number":
		return "float64"
	case "integer":
		return "int"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// generateStructFields renders one struct field per schema property, sorted by name.
func generateStructFields(properties map[string]interface{}, required map[string]bool) string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var fields []string
	for _, name := range names {
		details, ok := properties[name].(map[string]interface{})
		if !ok {
			continue
		}
		tag := name
		if !required[name] {
			tag += ",omitempty"
		}
		fields = append(fields, fmt.Sprintf("\t%s %s `json:\"%s\"`", upperFirst(name), goTypeFromJSONType(details["type"]), tag))
	}
	return strings.Join(fields, "\n")
}

func requiredSet(schema map[string]interface{}) map[string]bool {
	set := make(map[string]bool)
	list, _ := schema["required"].([]interface{})
	for _, v := range list {
		if s, ok := v.(string); ok {
			set[s] = true
		}
	}
	return set
}

// upperFirst makes the first character uppercase
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func packageName(taskType string) string {
	return strings.ReplaceAll(taskType, "-", "")
}

func newWorkerData(act *registry.Activity) WorkerData {
	return WorkerData{
		Name:         act.DisplayName,
		PackageName:  packageName(act.TaskType),
		TaskType:     act.TaskType,
		Description:  act.Description,
		Timeout:      act.Timeout,
		InputFields:  generateStructFields(parseSchema(act.InputSchema), requiredSet(act.InputSchema)),
		OutputFields: generateStructFields(parseSchema(act.OutputSchema), requiredSet(act.OutputSchema)),
	}
}

const configTemplate = `// internal/workers/report/{{ .TaskType }}/config.go
package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	timeout, _ := time.ParseDuration("{{ .Timeout }}")
	return &Config{
		Timeout: timeout,
	}
}
`

const modelsTemplate = `// internal/workers/report/{{ .TaskType }}/models.go
package {{ .PackageName }}

type Input struct {
{{ .InputFields }}
}

type Output struct {
{{ .OutputFields }}
}
`

const handlerTemplate = `// internal/workers/report/{{ .TaskType }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"time"

	"report-workers/internal/common/camunda"
	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "{{ .TaskType }}"

// Handler runs the {{ .Name }} activity: {{ .Description }}
type Handler struct {
	config       *Config
	schema       map[string]interface{}
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, schema map[string]interface{}, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		schema:       schema,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.schema, &input); err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.GetKey(), "error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return &Output{}, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
`

var templates = map[string]string{
	"config.go":  configTemplate,
	"models.go":  modelsTemplate,
	"handler.go": handlerTemplate,
}

// generate writes the scaffold into dir and returns the written paths.
func generate(data WorkerData, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		tmpl, err := template.New(name).Parse(templates[name])
		if err != nil {
			return written, fmt.Errorf("parse template %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		file, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", path, err)
		}
		err = tmpl.Execute(file, data)
		file.Close()
		if err != nil {
			return written, fmt.Errorf("execute template %s: %w", name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func main() {
	taskType := flag.String("taskType", "", "Task type from the activity registry (e.g., deliver-report)")
	outputDir := flag.String("output", "./internal/workers/report/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "", "Registry JSON file; the embedded registry is used when empty")
	flag.Parse()

	if *taskType == "" {
		fmt.Println("Usage: worker-generator -taskType <type> [-output <dir>] [-registry <path>]")
		os.Exit(1)
	}

	var (
		reg *registry.ActivityRegistry
		err error
	)
	if *registryPath == "" {
		reg, err = registry.Load()
	} else {
		reg, err = registry.LoadRegistry(*registryPath)
	}
	if err != nil {
		fmt.Printf("Error loading registry: %v\n", err)
		os.Exit(1)
	}

	act, ok := reg.Find(*taskType)
	if !ok {
		fmt.Printf("Activity '%s' not found in registry\n", *taskType)
		os.Exit(1)
	}

	written, err := generate(newWorkerData(act), filepath.Join(*outputDir, act.TaskType))
	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nNext: implement Execute, write handler_test.go and register the worker in cmd/worker-manager/main.go")
}
