package testutil

import "testing"

// Given, When, and Then keep multi-step test narratives readable without a
// BDD framework. Each just labels a subtest.

func Given(t *testing.T, description string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("given "+description, fn)
}

func When(t *testing.T, description string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("when "+description, fn)
}

func Then(t *testing.T, description string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("then "+description, fn)
}
