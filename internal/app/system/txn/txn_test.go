package txn

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported_CommandErrorCodes(t *testing.T) {
	supported := map[int32]bool{20: true, 51: true, 263: true}
	for _, code := range []int32{8, 11, 20, 51, 100, 112, 251, 263} {
		err := mongo.CommandError{Code: code, Message: "server rejected the operation"}
		if got := IsNotSupported(err); got != supported[code] {
			t.Errorf("code %d: IsNotSupported = %v, want %v", code, got, supported[code])
		}
	}
}

func TestIsNotSupported_WrappedCommandError(t *testing.T) {
	// Store layers wrap driver errors before they reach the fallback check;
	// the code must still be visible through the wrapping.
	inner := mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"}
	wrapped := fmt.Errorf("send friend request: %w", inner)
	if !IsNotSupported(wrapped) {
		t.Error("expected wrapped code-20 command error to be detected")
	}

	doubly := fmt.Errorf("ledger: %w", wrapped)
	if !IsNotSupported(doubly) {
		t.Error("expected doubly wrapped command error to be detected")
	}

	other := fmt.Errorf("accept collaboration request: %w", mongo.CommandError{Code: 11600, Message: "interrupted"})
	if IsNotSupported(other) {
		t.Error("an unrelated command error must not trigger the fallback")
	}
}

func TestIsNotSupported_MessageHeuristics(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"", false},
		{"connection reset by peer", false},
		{"transaction numbers are only allowed on a replica set member", true},
		{"Sessions are not supported by this MongoDB deployment", true},
		{"cannot start transaction in current session state", true},
		{"illegal operation while in a transaction", true},
		{"TRANSACTION aborted on REPLICA SET primary", true},
		// One keyword alone is not enough to assume a standalone server.
		{"transaction aborted", false},
		{"session expired", false},
	}
	for _, tt := range tests {
		var err error
		if tt.msg != "" {
			err = errors.New(tt.msg)
		}
		if got := IsNotSupported(err); got != tt.want {
			t.Errorf("IsNotSupported(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
