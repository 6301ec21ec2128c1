package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// DecodeVariables checks the job variables against the activity input schema and decodes
// them into target. Schema violations become INPUT_SCHEMA_MISMATCH errors.
func DecodeVariables(job entities.Job, taskType string, schema map[string]interface{}, target interface{}) error {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return apperrors.NewInputSchemaMismatchError(taskType, fmt.Sprintf("variables are not a JSON object: %v", err))
	}

	if schema != nil {
		result, err := validation.ValidateInput(variables, schema)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if !result.Valid {
			return apperrors.NewInputSchemaMismatchError(taskType, strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	if err := json.Unmarshal([]byte(job.GetVariables()), target); err != nil {
		return apperrors.NewInputSchemaMismatchError(taskType, err.Error())
	}
	return nil
}

// CompleteJob sends the output object as the job's result variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete job command: %w", err)
	}
	return nil
}
