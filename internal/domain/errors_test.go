package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation keeps detail", fmt.Errorf("limit must be positive: %w", ErrInvalidRequest), "limit must be positive: invalid request"},
		{"sentinel hides wrapping", fmt.Errorf("redis 10.0.0.1: %w", ErrRecordNotFound), "record not found"},
		{"dimension mismatch", NewDimensionMismatch(3, 2), "embedding dimension mismatch"},
		{"unknown", errors.New("dial tcp: refused"), "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicMessage(tt.err); got != tt.want {
				t.Fatalf("PublicMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
