package simerr

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("stage 2: %w", MissingInput(InputForcing, "no file covers %s", "2024-06-10"))
	if got := KindOf(err); got != KindMissingInput {
		t.Fatalf("KindOf()=%q, want %q", got, KindMissingInput)
	}
	if got := InputOf(err); got != InputForcing {
		t.Fatalf("InputOf()=%q, want %q", got, InputForcing)
	}
	if !errors.Is(err, &Error{Kind: KindMissingInput, Input: InputForcing}) {
		t.Fatalf("errors.Is() expected match on kind and input")
	}
	if errors.Is(err, &Error{Kind: KindMissingInput, Input: InputFins}) {
		t.Fatalf("errors.Is() matched wrong input")
	}
}

func TestIOKeepsExistingKind(t *testing.T) {
	inner := Engine("run", "completion phrase not found")
	if got := KindOf(IO("copy", inner)); got != KindEngineFailure {
		t.Fatalf("KindOf()=%q, want engine_failure", got)
	}
	wrapped := IO("copy", os.ErrNotExist)
	if KindOf(wrapped) != KindIO || !errors.Is(wrapped, os.ErrNotExist) {
		t.Fatalf("IO() lost cause: %v", wrapped)
	}
	if IO("copy", nil) != nil {
		t.Fatalf("IO(nil) should be nil")
	}
}

func TestErrorMessage(t *testing.T) {
	err := MissingInput(InputNomfich, "nomfich file not found: %s", "Nomfich_1.dat")
	want := "missing_input(nomfich): nomfich file not found: Nomfich_1.dat"
	if err.Error() != want {
		t.Fatalf("Error()=%q, want %q", err.Error(), want)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("KindOf() plain error should be empty")
	}
}
