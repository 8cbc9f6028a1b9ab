package exec

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunPipedEchoesStdin(t *testing.T) {
	r := NewRunner()
	out, err := r.RunPiped(context.Background(), PipedRequest{
		Command: "cat",
		Stdin:   []byte(`{"x":1}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"x":1}` {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRunPipedEnv(t *testing.T) {
	r := NewRunner()
	out, err := r.RunPiped(context.Background(), PipedRequest{
		Command: `printf %s "$MAESTRO_STEP"`,
		Env:     []string{"MAESTRO_STEP=build"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "build" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRunPipedExitError(t *testing.T) {
	r := NewRunner()
	_, err := r.RunPiped(context.Background(), PipedRequest{Command: "echo boom >&2; exit 3"})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("expected exit code 3, got %d", exitErr.Code)
	}
	if !strings.Contains(exitErr.Error(), "boom") {
		t.Errorf("expected stderr in message, got %q", exitErr.Error())
	}
}

func TestRunPipedContextCancelled(t *testing.T) {
	r := NewRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RunPiped(ctx, PipedRequest{Command: "sleep 5"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
