package sources_test

import "testing"

func requireNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func requireLen[T any](t *testing.T, items []T, expected int) {
	t.Helper()
	if len(items) != expected {
		t.Fatalf("expected %d items, got %d", expected, len(items))
	}
}

func assertEqual(t *testing.T, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("expected %q, got %q", want, got)
	}
}
