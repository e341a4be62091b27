package executor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/Gatekeeper/internal/domain"
)

func okExec(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"ok":true}`), nil
}

func TestExecuteRunsRegisteredExecutor(t *testing.T) {
	r := NewRegistry()
	r.Register("update_profile", okExec)

	out, err := r.Execute(context.Background(), "update_profile", "tenant-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"ok":true}` {
		t.Errorf("unexpected output %s", out)
	}
}

func TestExecuteUnknownToolIsConfigurationError(t *testing.T) {
	r := NewRegistry()

	_, err := r.Execute(context.Background(), "ghost", "tenant-1", nil)
	var confErr *domain.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestExecuteWrapsExecutorError(t *testing.T) {
	r := NewRegistry()
	r.Register("flaky", func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("backend down")
	})

	_, err := r.Execute(context.Background(), "flaky", "tenant-1", nil)
	var execErr *domain.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %T: %v", err, err)
	}
	if execErr.Tool != "flaky" {
		t.Errorf("Tool = %q, want flaky", execErr.Tool)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register("boom", func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		panic("executor bug")
	})

	_, err := r.Execute(context.Background(), "boom", "tenant-1", nil)
	var execErr *domain.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError from panic, got %T: %v", err, err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register("once", okExec)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register("once", okExec)
}

func TestRegisterNilPanics(t *testing.T) {
	r := NewRegistry()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil executor")
		}
	}()
	r.Register("nil", nil)
}

func TestValidateCompleteNamesMissingTools(t *testing.T) {
	r := NewRegistry()
	r.Register("update_profile", okExec)

	err := r.ValidateComplete([]string{"update_profile", "delete_package", "upsert_segment"})
	var confErr *domain.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
	if len(confErr.Missing) != 2 {
		t.Fatalf("Missing = %v, want 2 entries", confErr.Missing)
	}
	if !strings.Contains(err.Error(), "delete_package") {
		t.Errorf("error should name the missing tool: %v", err)
	}
}

func TestValidateCompletePassesWhenAllRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register("a", okExec)
	r.Register("b", okExec)

	if err := r.ValidateComplete([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
}
