package ctxengine_test

import (
	"strings"
	"testing"

	ctxengine "github.com/flemzord/pplx/internal/context"
	"github.com/flemzord/pplx/internal/provider"
)

func TestCharEstimator_Ceil(t *testing.T) {
	t.Parallel()

	tests := []struct {
		length int
		want   int
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 1},
		{5, 2},
		{8, 2},
		{9, 3},
		{400, 100},
		{401, 101},
	}

	var e ctxengine.CharEstimator
	for _, tt := range tests {
		text := strings.Repeat("a", tt.length)
		if got := e.Estimate(text); got != tt.want {
			t.Errorf("Estimate(len=%d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}

func TestCharEstimator_CountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	// Four characters, eight bytes.
	if got := (ctxengine.CharEstimator{}).Estimate("éééé"); got != 1 {
		t.Errorf("Estimate = %d, want 1", got)
	}
}

func TestTiktokenEstimator(t *testing.T) {
	t.Parallel()

	e, err := ctxengine.NewTiktokenEstimator()
	if err != nil {
		t.Fatalf("NewTiktokenEstimator: %v", err)
	}
	if got := e.Estimate(""); got != 0 {
		t.Errorf("Estimate(\"\") = %d, want 0", got)
	}
	if got := e.Estimate("hello world"); got != 2 {
		t.Errorf("Estimate(hello world) = %d, want 2", got)
	}
}

func TestDefaultEstimator(t *testing.T) {
	t.Parallel()

	e := ctxengine.DefaultEstimator(nil)
	if e == nil {
		t.Fatal("DefaultEstimator returned nil")
	}
	if got := e.Estimate("some text to count"); got <= 0 {
		t.Errorf("Estimate = %d, want > 0", got)
	}
}

func TestEstimateMessages(t *testing.T) {
	t.Parallel()

	msgs := []provider.LLMMessage{
		{Role: provider.MessageRoleUser, Content: strings.Repeat("x", 10)},
		{Role: provider.MessageRoleAssistant, Content: strings.Repeat("y", 7)},
		{Role: provider.MessageRoleUser, Content: ""},
	}
	// ceil(10/4) + ceil(7/4) + 0
	if got := ctxengine.EstimateMessages(ctxengine.CharEstimator{}, msgs); got != 5 {
		t.Errorf("EstimateMessages = %d, want 5", got)
	}
}
