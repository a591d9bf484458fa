package logger

import "testing"

func TestInitAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if err := Init(level, "json"); err != nil {
			t.Fatalf("init with level %q: %v", level, err)
		}
	}
}

func TestInitFallsBackOnUnknownLevel(t *testing.T) {
	if err := Init("nonsense", "console"); err != nil {
		t.Fatalf("expected fallback to info level, got error: %v", err)
	}
	if Logger() == nil {
		t.Fatal("expected a usable logger")
	}
}

func TestWithModuleReturnsChild(t *testing.T) {
	if WithModule("auth") == nil {
		t.Fatal("expected a child logger")
	}
}
