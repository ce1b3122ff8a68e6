package copilot

import (
	"errors"
	"os"
	"testing"
)

func TestWithTokenEnvRestoresPriorValue(t *testing.T) {
	t.Setenv(TokenEnvVar, "before")

	err := WithTokenEnv("during", func() error {
		if got := os.Getenv(TokenEnvVar); got != "during" {
			t.Errorf("inside fn: %q", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTokenEnv: %v", err)
	}
	if got := os.Getenv(TokenEnvVar); got != "before" {
		t.Errorf("after fn: %q, want before", got)
	}
}

func TestWithTokenEnvUnsetsWhenPreviouslyUnset(t *testing.T) {
	// t.Setenv registers the restore, then we clear it so the variable
	// is genuinely absent going in.
	t.Setenv(TokenEnvVar, "")
	os.Unsetenv(TokenEnvVar)

	WithTokenEnv("during", func() error { return nil })

	if _, present := os.LookupEnv(TokenEnvVar); present {
		t.Error("variable must be deleted, not set to empty string")
	}
}

func TestWithTokenEnvRestoresOnError(t *testing.T) {
	t.Setenv(TokenEnvVar, "before")
	sentinel := errors.New("boom")

	err := WithTokenEnv("during", func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("error not propagated: %v", err)
	}
	if got := os.Getenv(TokenEnvVar); got != "before" {
		t.Errorf("after failing fn: %q, want before", got)
	}
}
