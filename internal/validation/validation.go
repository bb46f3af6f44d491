// Package validation enforces the size and shape limits on job submissions
// and runner reports.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/flatironinstitute/runpack/internal/config"
)

// ValidateSubmission checks a job submission's type and input parameters.
func ValidateSubmission(jobType string, inputParams json.RawMessage) error {
	if jobType == "" {
		return fmt.Errorf("job_type is required")
	}
	if len(inputParams) > config.MaxInputParamsBytes {
		return fmt.Errorf("input_params exceeds %d bytes", config.MaxInputParamsBytes)
	}
	if len(inputParams) > 0 && !json.Valid(inputParams) {
		return fmt.Errorf("input_params is not valid JSON")
	}
	return nil
}

// ValidateOutput checks a completion report's output data.
func ValidateOutput(outputData json.RawMessage) error {
	if len(outputData) > config.MaxOutputDataBytes {
		return fmt.Errorf("output_data exceeds %d bytes", config.MaxOutputDataBytes)
	}
	if len(outputData) > 0 && !json.Valid(outputData) {
		return fmt.Errorf("output_data is not valid JSON")
	}
	return nil
}

// ValidateConsoleOutput checks console output carried by heartbeats and terminals.
func ValidateConsoleOutput(console string) error {
	if len(console) > config.MaxConsoleOutputBytes {
		return fmt.Errorf("console_output exceeds %d bytes", config.MaxConsoleOutputBytes)
	}
	return nil
}

// ValidateErrorMessage checks the error message of a failure report.
func ValidateErrorMessage(message string) error {
	if len(message) > config.MaxErrorMessageBytes {
		return fmt.Errorf("error_message exceeds %d bytes", config.MaxErrorMessageBytes)
	}
	return nil
}
