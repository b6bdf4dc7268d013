package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_Message(t *testing.T) {
	err := NewModelTypeError("spectral", "FooSpectralModel", []string{"PowerLawSpectralModel", "LogParabolaSpectralModel"}).
		WithSource("4FGL J0001.2-0747")

	msg := err.Error()
	assert.Contains(t, msg, "MODEL_TYPE_ERROR")
	assert.Contains(t, msg, `"4FGL J0001.2-0747"`)
	assert.Contains(t, msg, "FooSpectralModel")
	assert.Contains(t, msg, "PowerLawSpectralModel, LogParabolaSpectralModel")
}

func TestWithSource(t *testing.T) {
	t.Run("keeps existing source", func(t *testing.T) {
		err := NewValidationError("value", "missing").WithSource("first")
		tagged := WithSource(err, "second")

		var stdErr *StandardError
		require.True(t, stderrors.As(tagged, &stdErr))
		assert.Equal(t, "first", stdErr.Source)
	})

	t.Run("wraps plain errors as validation errors", func(t *testing.T) {
		tagged := WithSource(fmt.Errorf("boom"), "Crab")

		var stdErr *StandardError
		require.True(t, stderrors.As(tagged, &stdErr))
		assert.Equal(t, ErrCodeValidation, stdErr.Code)
		assert.Equal(t, "Crab", stdErr.Source)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WithSource(nil, "Crab"))
	})
}

func TestIsCode(t *testing.T) {
	base := NewModelLoadError("/no/such/file.fits", fmt.Errorf("not found"))
	wrapped := fmt.Errorf("assemble: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeModelLoad))
	assert.False(t, IsCode(wrapped, ErrCodeModelType))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrCodeModelLoad))
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewBindingTypeError(42)
	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "BINDING_TYPE_ERROR", bpmnErr.Code)
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, 0, bpmnErr.Retries)

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "BINDING_TYPE_ERROR", vars["errorCode"])
	assert.Equal(t, "BINDING_TYPE_ERROR", vars["originalErrorCode"])
	assert.NotEmpty(t, vars["expected"])
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeModelType, "MODEL"},
		{ErrCodeModelLoad, "MODEL"},
		{ErrCodeValidation, "VALIDATION"},
		{ErrCodeBindingType, "BINDING"},
		{ErrCodeTargetModelMissing, "BINDING"},
		{ErrCodeConfigLoadFailed, "INPUT"},
		{"SOMETHING_ELSE", "OTHER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCategory(tt.code))
		})
	}
}

func TestNormalize(t *testing.T) {
	stdErr := NewValidationError("min", "not a number")
	assert.Same(t, stdErr, Normalize(fmt.Errorf("wrapped: %w", stdErr)))

	plain := Normalize(fmt.Errorf("boom"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), plain.Code)
	assert.Equal(t, "boom", plain.Details)
}
