package integration

import (
	"testing"

	"gorm.io/gorm"

	"ledgercore/internal/logger"
	"ledgercore/internal/services"
	"ledgercore/internal/testutil"
)

// testEngine holds the fully wired service stack for integration tests.
type testEngine struct {
	DB             *gorm.DB
	Events         services.EventServicer
	Accounts       services.AccountServicer
	Entries        services.EntryServicer
	Recurrence     services.RecurrenceServicer
	Reconciliation services.ReconciliationServicer
	Categorization services.CategorizationServicer
	Analytics      services.AnalyticsServicer
}

func init() {
	logger.Init("test")
}

// setupEngine wires every service against one isolated in-memory database,
// mirroring the production composition in cmd/sweeper.
func setupEngine(t *testing.T) *testEngine {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	cfg := services.DefaultConfig()
	events := services.NewEventService(db)
	entries := services.NewEntryService(db, services.NewPropagationService(), events, cfg)

	return &testEngine{
		DB:             db,
		Events:         events,
		Accounts:       services.NewAccountService(db),
		Entries:        entries,
		Recurrence:     services.NewRecurrenceService(db, entries, events),
		Reconciliation: services.NewReconciliationService(db, events, cfg),
		Categorization: services.NewCategorizationService(db),
		Analytics:      services.NewAnalyticsService(db),
	}
}
