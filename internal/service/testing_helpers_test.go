package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/database"
	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/repository"
	"github.com/noah-isme/legalbot-guard-api/internal/risk"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start.UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.ModerationEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event dto.ModerationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []dto.ActivityCreateRequest
}

func (a *recordingAudit) Submit(ctx context.Context, entry dto.ActivityCreateRequest) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return true
}

func (a *recordingAudit) Entries() []dto.ActivityCreateRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]dto.ActivityCreateRequest(nil), a.entries...)
}

// guardFixture wires the services on one database with a shared clock.
type guardFixture struct {
	db         *gorm.DB
	clock      *testClock
	activities repository.ActivityLogRepository
	bans       repository.BanRepository
	cases      repository.SuspiciousActivityRepository
	profiles   repository.ProfileRepository
	events     *recordingPublisher
	audit      *recordingAudit
	activity   ActivityService
	moderation ModerationService
	ban        BanService
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()

	db := setupServiceDB(t)
	clock := newTestClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	validate := validator.New(validator.WithRequiredStructEnabled())

	f := &guardFixture{
		db:         db,
		clock:      clock,
		activities: repository.NewActivityLogRepository(db),
		bans:       repository.NewBanRepository(db),
		cases:      repository.NewSuspiciousActivityRepository(db),
		profiles:   repository.NewProfileRepository(db),
		events:     &recordingPublisher{},
		audit:      &recordingAudit{},
	}

	evaluator, err := risk.NewEvaluator(risk.DefaultCaseThreshold)
	require.NoError(t, err)

	moderation := NewModerationService(f.cases, f.events, validate, testLogger())
	moderation.(*moderationService).now = clock.Now
	f.moderation = moderation

	activity := NewActivityService(f.activities, f.bans, evaluator, moderation, validate, ActivityServiceConfig{QueryCap: 1000, HistoryLimit: 200}, testLogger())
	activity.(*activityService).now = clock.Now
	f.activity = activity

	ban := NewBanService(f.bans, f.profiles, f.audit, f.events, validate, testLogger())
	ban.(*banService).now = clock.Now
	f.ban = ban

	return f
}

func (f *guardFixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(model).Count(&count).Error)
	return count
}
