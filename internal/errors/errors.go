package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Structured error kinds for the KPI extraction pipeline
 *
 * Every recoverable failure is converted to a PipelineError at the
 * extraction/assembly/delta boundary and surfaced as a structured
 * response. Nothing here is fatal to the process.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// OCR engine errors
	ErrorOCRFailed  ErrorCode = "OCR_FAILED"
	ErrorOCRTimeout ErrorCode = "OCR_TIMEOUT"

	// Extraction/assembly errors
	ErrorIncompleteData ErrorCode = "INCOMPLETE_DATA"

	// Delta computation errors
	ErrorSnapshotNotFound ErrorCode = "SNAPSHOT_NOT_FOUND"
	ErrorZeroSentWindow   ErrorCode = "ZERO_SENT_WINDOW"

	// Storage errors
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
)

// PipelineError represents a structured pipeline error
type PipelineError struct {
	Code      ErrorCode
	Message   string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// HasCode reports whether err is (or wraps) a PipelineError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// Factory functions for common errors

func NewOCRFailedError(cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorOCRFailed,
		Message:   "OCR engine failed to produce usable detections",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewOCRTimeoutError(timeout time.Duration, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorOCRTimeout,
		Message:   fmt.Sprintf("OCR timed out after %v", timeout),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout": timeout.String(),
		},
		Cause: cause,
	}
}

func NewSnapshotNotFoundError(date string, moment string) *PipelineError {
	return &PipelineError{
		Code:      ErrorSnapshotNotFound,
		Message:   fmt.Sprintf("no snapshot stored for %s (%s)", date, moment),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"date":   date,
			"moment": moment,
		},
	}
}

func NewPeriodStatNotFoundError(date string, moment string, period string) *PipelineError {
	return &PipelineError{
		Code:      ErrorSnapshotNotFound,
		Message:   fmt.Sprintf("no %s period stats stored for %s (%s)", period, date, moment),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"date":   date,
			"moment": moment,
			"period": period,
		},
	}
}

func NewZeroSentWindowError(date string) *PipelineError {
	return &PipelineError{
		Code:      ErrorZeroSentWindow,
		Message:   fmt.Sprintf("no messages sent between start and end of %s, response-rate delta is undefined", date),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"date": date,
		},
	}
}

func NewStorageFailedError(cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorStorageFailed,
		Message:   "storage operation failed",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for structured responses
func (e *PipelineError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
