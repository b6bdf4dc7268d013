// Package errors provides the standardized error taxonomy for model translation
// and its BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Model translation errors
const (
	ErrCodeModelType          ErrorCode = "MODEL_TYPE_ERROR"
	ErrCodeModelLoad          ErrorCode = "MODEL_LOAD_ERROR"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeBindingType        ErrorCode = "BINDING_TYPE_ERROR"
	ErrCodeTargetModelMissing ErrorCode = "TARGET_MODEL_MISSING"

	ErrCodeConfigLoadFailed  ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeCatalogLoadFailed ErrorCode = "CATALOG_LOAD_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Field     string                 `json:"field,omitempty"`
	Expected  []string               `json:"expected,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "StandardError[%s]: %s", e.Code, e.Message)
	if e.Source != "" {
		fmt.Fprintf(&b, " (source %q)", e.Source)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, "; expected one of [%s]", strings.Join(e.Expected, ", "))
	}
	return b.String()
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithSource returns a copy of the error tagged with the offending source name.
// An existing source name is kept.
func (e *StandardError) WithSource(source string) *StandardError {
	cp := *e
	if cp.Source == "" {
		cp.Source = source
	}
	return &cp
}

// WithSource tags err with a source name when it is a *StandardError, and
// wraps anything else as a validation error for that source.
func WithSource(err error, source string) error {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.WithSource(source)
	}
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Model translation failed",
		Details:   err.Error(),
		Source:    source,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// IsCode reports whether any error in err's chain is a *StandardError with code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewModelTypeError reports a family or model tag outside the supported registry.
func NewModelTypeError(kind, tag string, expected []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelType,
		Message:   fmt.Sprintf("Unsupported %s model type", kind),
		Details:   fmt.Sprintf("type: %q", tag),
		Field:     kind,
		Expected:  expected,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelLoadError reports a file-backed model that could not be read.
func NewModelLoadError(path string, err error) *StandardError {
	details := fmt.Sprintf("path: %s", path)
	if err != nil {
		details = fmt.Sprintf("path: %s, error: %s", path, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeModelLoad,
		Message:   "Failed to load file-backed model",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewValidationError reports a malformed parameter or config record.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Malformed parameter record",
		Details:   details,
		Field:     field,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBindingTypeError reports an unsupported model collection passed to the binder.
func NewBindingTypeError(got interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeBindingType,
		Message:   "Invalid model collection type",
		Details:   fmt.Sprintf("type: %T", got),
		Expected:  []string{"*modeling.Models", "[]*modeling.SkyModel", "modeling.ModelsPath", "nil with target components"},
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTargetModelMissingError reports a multi-model collection without the target model.
func NewTargetModelMissingError(target string, names []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTargetModelMissing,
		Message:   "Target model not found in model collection",
		Source:    target,
		Expected:  names,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigLoadFailedError wraps a failure reading an analysis config.
func NewConfigLoadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigLoadFailed,
		Message:   "Failed to load analysis config",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCatalogLoadFailedError wraps a failure reading a legacy catalog.
func NewCatalogLoadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   "Failed to load source catalog",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
// Translation errors are deterministic, so only infrastructure failures retry.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case "EXTERNAL_SERVICE_ERROR":
		return 3
	case "TIMEOUT_ERROR":
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if stdErr.Source != "" {
		vars["sourceName"] = stdErr.Source
	}
	if stdErr.Field != "" {
		vars["field"] = stdErr.Field
	}
	if len(stdErr.Expected) > 0 {
		vars["expected"] = stdErr.Expected
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeModelType, ErrCodeModelLoad:
		return "MODEL"
	case ErrCodeValidation:
		return "VALIDATION"
	case ErrCodeBindingType, ErrCodeTargetModelMissing:
		return "BINDING"
	case ErrCodeConfigLoadFailed, ErrCodeCatalogLoadFailed:
		return "INPUT"
	default:
		return "OTHER"
	}
}
