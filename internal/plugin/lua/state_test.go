package lua

import (
	"context"
	"errors"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func TestNewState(t *testing.T) {
	state := NewState()
	defer state.Close()

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}
	if state.L == nil {
		t.Error("NewState() L is nil")
	}
	if state.Sandbox() == nil {
		t.Error("NewState() has no sandbox")
	}
}

func TestStateSafeLibraries(t *testing.T) {
	state := NewState()
	defer state.Close()

	tests := []struct {
		name string
		want bool
	}{
		{"string", true},
		{"table", true},
		{"math", true},
		{"pairs", true},
		{"io", false},
		{"os", false},
		{"debug", false},
		{"package", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			err := state.Do(context.Background(), func(L *glua.LState) error {
				got = L.GetGlobal(tt.name) != glua.LNil
				return nil
			})
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("global %q present = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestStateDoString(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(context.Background(), `x = string.upper("ok") .. math.floor(2.5)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	var x string
	_ = state.Do(context.Background(), func(L *glua.LState) error {
		x = L.GetGlobal("x").String()
		return nil
	})
	if x != "OK2" {
		t.Errorf("x = %q, want %q", x, "OK2")
	}
}

func TestStateDoStringError(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(context.Background(), `error("broken")`); err == nil {
		t.Error("DoString() should return the Lua error")
	}
	if err := state.DoString(context.Background(), `this is not lua`); err == nil {
		t.Error("DoString() should return the syntax error")
	}
}

func TestStateTimeout(t *testing.T) {
	state := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer state.Close()

	start := time.Now()
	err := state.DoString(context.Background(), `while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("DoString() error = %v, want ErrExecutionTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}

	if err := state.DoString(context.Background(), `y = 1`); err != nil {
		t.Errorf("state unusable after timeout: %v", err)
	}
}

func TestStateContextCancel(t *testing.T) {
	state := NewState(WithExecutionTimeout(0))
	defer state.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := state.DoString(ctx, `while true do end`); err == nil {
		t.Fatal("DoString() should stop when the context is cancelled")
	}
}

func TestStateDoRecoversPanic(t *testing.T) {
	state := NewState()
	defer state.Close()

	err := state.Do(context.Background(), func(*glua.LState) error {
		panic("go side exploded")
	})
	if err == nil {
		t.Fatal("Do() should convert a panic to an error")
	}
}

func TestStateClose(t *testing.T) {
	state := NewState()

	if err := state.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !state.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if err := state.DoString(context.Background(), `x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() after Close error = %v, want ErrStateClosed", err)
	}
}
