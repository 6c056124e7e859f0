package workers

import (
	"testing"
	"time"

	"github.com/yoockh/lingualink/internal/models"
	pgrepo "github.com/yoockh/lingualink/internal/repositories/postgres"
	"github.com/yoockh/lingualink/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	calls    services.CallService
	presence services.PresenceService
	repo     pgrepo.CallSessionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.CallSession{}, &models.AgentPresence{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	repo := pgrepo.NewCallSessionRepo(db)
	return &testEnv{
		calls:    services.NewCallService(repo, nil, nil),
		presence: services.NewPresenceService(pgrepo.NewPresenceRepo(db), 0),
		repo:     repo,
	}
}

// eventually polls fn until it returns true or the deadline passes.
func eventually(t *testing.T, d time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
