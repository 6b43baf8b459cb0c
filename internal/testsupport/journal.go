package testsupport

import (
	"testing"

	"shipit/internal/config"
	"shipit/internal/journal"
)

// MustOpenJournal opens the run journal and registers cleanup with the test.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
