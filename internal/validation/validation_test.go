package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatironinstitute/runpack/internal/config"
)

// jsonOfSize builds a valid JSON document of exactly n bytes.
func jsonOfSize(t *testing.T, n int) json.RawMessage {
	t.Helper()
	const overhead = len(`{"p":""}`)
	require.Greater(t, n, overhead)
	doc := fmt.Sprintf(`{"p":"%s"}`, strings.Repeat("x", n-overhead))
	require.Len(t, doc, n)
	require.True(t, json.Valid([]byte(doc)))
	return json.RawMessage(doc)
}

func TestValidateSubmission(t *testing.T) {
	assert.NoError(t, ValidateSubmission("T", json.RawMessage(`{"a":1}`)))
	assert.NoError(t, ValidateSubmission("T", nil))

	assert.Error(t, ValidateSubmission("", json.RawMessage(`{}`)))
	assert.Error(t, ValidateSubmission("T", json.RawMessage(`{"a":`)))
}

func TestValidateSubmissionSizeBoundary(t *testing.T) {
	atCap := jsonOfSize(t, config.MaxInputParamsBytes)
	assert.NoError(t, ValidateSubmission("T", atCap))

	overCap := jsonOfSize(t, config.MaxInputParamsBytes+1)
	assert.Error(t, ValidateSubmission("T", overCap))
}

func TestValidateOutputSizeBoundary(t *testing.T) {
	atCap := jsonOfSize(t, config.MaxOutputDataBytes)
	assert.NoError(t, ValidateOutput(atCap))

	overCap := jsonOfSize(t, config.MaxOutputDataBytes+1)
	assert.Error(t, ValidateOutput(overCap))

	assert.Error(t, ValidateOutput(json.RawMessage(`not json`)))
}

func TestValidateConsoleOutputSizeBoundary(t *testing.T) {
	atCap := string(bytes.Repeat([]byte("x"), config.MaxConsoleOutputBytes))
	assert.NoError(t, ValidateConsoleOutput(atCap))

	assert.Error(t, ValidateConsoleOutput(atCap+"x"))
}

func TestValidateErrorMessageSizeBoundary(t *testing.T) {
	atCap := string(bytes.Repeat([]byte("x"), config.MaxErrorMessageBytes))
	assert.NoError(t, ValidateErrorMessage(atCap))

	assert.Error(t, ValidateErrorMessage(atCap+"x"))
}
