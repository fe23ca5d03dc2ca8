package app

import "testing"

func TestTestModeFollowsEnvironment(t *testing.T) {
	t.Setenv("CAMPUSQUIZ_TEST_MODE", "1")
	RefreshTestMode()
	if !InTestMode() {
		t.Fatal("expected test mode when CAMPUSQUIZ_TEST_MODE=1")
	}

	t.Setenv("CAMPUSQUIZ_TEST_MODE", "")
	RefreshTestMode()
	if InTestMode() {
		t.Fatal("expected test mode to be off")
	}
}
