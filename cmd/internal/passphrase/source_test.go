package passphrase

import (
	"errors"
	"io"
	"testing"
)

func testSource(env map[string]string, tty bool, answers ...string) *Source {
	s := NewSource("TASTE_KEY_PASS")
	s.lookup = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	s.terminal = func() bool { return tty }
	s.read = func() ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no input")
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
	s.prompt = io.Discard
	return s
}

func TestSourcePrefersEnvironment(t *testing.T) {
	s := testSource(map[string]string{"TASTE_KEY_PASS": "hunter2"}, false)
	got, err := s.Get()
	if err != nil || got != "hunter2" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if _, err := testSource(map[string]string{"TASTE_KEY_PASS": "  "}, true).Get(); err == nil {
		t.Fatalf("expected blank environment value to fail")
	}
}

func TestSourceNeedsTerminalWithoutEnvironment(t *testing.T) {
	if _, err := testSource(nil, false).Get(); err == nil {
		t.Fatalf("expected failure without terminal")
	}
}

func TestSourcePromptsAndConfirms(t *testing.T) {
	s := testSource(nil, true, "secret", "secret").WithConfirmation()
	got, err := s.Get()
	if err != nil || got != "secret" {
		t.Fatalf("get = %q, %v", got, err)
	}
	// cached
	if again, _ := s.Get(); again != "secret" {
		t.Fatalf("cached value = %q", again)
	}

	if _, err := testSource(nil, true, "secret", "other").WithConfirmation().Get(); err == nil {
		t.Fatalf("expected mismatch")
	}
	if _, err := testSource(nil, true, " ").Get(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected empty passphrase error, got %v", err)
	}
}
