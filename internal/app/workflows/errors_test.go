package workflows

import (
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestWrapStore_NoDocuments(t *testing.T) {
	err := WrapStore("load user", mongo.ErrNoDocuments)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWrapStore_OtherError(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapStore("save request", cause)

	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("StoreError should unwrap to its cause")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("store failure must not read as NotFound")
	}
}

func TestWrapStore_Nil(t *testing.T) {
	if err := WrapStore("noop", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestValidationError_ListsAllFields(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"institution":      "required",
		"years_experience": "must be a positive integer",
	}}
	msg := err.Error()
	if !strings.Contains(msg, "institution") || !strings.Contains(msg, "years_experience") {
		t.Errorf("message should name every violated field, got %q", msg)
	}
}

func TestInvalidTransitionError_Message(t *testing.T) {
	err := &InvalidTransitionError{Entity: "reviewer application", From: "approved", Op: "approve"}
	if !strings.Contains(err.Error(), "approved") {
		t.Errorf("message should include the current status, got %q", err.Error())
	}
}
