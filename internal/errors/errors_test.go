package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestHasCode(t *testing.T) {
	base := NewZeroSentWindowError("2026-08-28")

	if !HasCode(base, ErrorZeroSentWindow) {
		t.Error("HasCode should match the direct error")
	}
	if HasCode(base, ErrorOCRFailed) {
		t.Error("HasCode should not match a different code")
	}

	wrapped := fmt.Errorf("compute failed: %w", base)
	if !HasCode(wrapped, ErrorZeroSentWindow) {
		t.Error("HasCode should unwrap")
	}

	if HasCode(errors.New("plain"), ErrorZeroSentWindow) {
		t.Error("HasCode should reject non-pipeline errors")
	}
	if HasCode(nil, ErrorZeroSentWindow) {
		t.Error("HasCode(nil) should be false")
	}
}

func TestToMap(t *testing.T) {
	err := NewSnapshotNotFoundError("2026-08-28", "start")
	m := err.ToMap()

	if m["error_code"] != "SNAPSHOT_NOT_FOUND" {
		t.Errorf("error_code = %v", m["error_code"])
	}
	if m["date"] != "2026-08-28" || m["moment"] != "start" {
		t.Errorf("details not flattened: %v", m)
	}

	cause := errors.New("connection refused")
	withCause := NewStorageFailedError(cause).ToMap()
	if withCause["cause"] != "connection refused" {
		t.Errorf("cause = %v", withCause["cause"])
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewOCRFailedError(cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}
