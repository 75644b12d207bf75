package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/akeren/waitlist-landing/internal/models"
	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.WaitlistEntry{}))
	return db
}

func seedEntries(t *testing.T, repo WaitlistRepository, emails ...string) []*models.WaitlistEntry {
	t.Helper()

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	out := make([]*models.WaitlistEntry, 0, len(emails))
	for i, email := range emails {
		entry, err := repo.AppendEntry(context.Background(), &models.WaitlistEntry{
			Email:       email,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
			Source:      "landing_page",
			Status:      "Active",
			Platform:    models.PlatformDesktop,
		})
		require.NoError(t, err)
		out = append(out, entry)
	}
	return out
}

func TestWaitlistRepository_AppendAndList(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	ctx := context.Background()

	seeded := seedEntries(t, repo, "a@b.co", "c@d.co", "e@f.co")
	assert.NotZero(t, seeded[0].ID)

	entries, total, err := repo.ListEntries(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	assert.Equal(t, "c@d.co", entries[0].Email)
	assert.Equal(t, "e@f.co", entries[1].Email)

	all, err := repo.AllEntries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a@b.co", all[0].Email)

	count, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestWaitlistRepository_FindEntryByID(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	seeded := seedEntries(t, repo, "a@b.co")

	found, err := repo.FindEntryByID(context.Background(), seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", found.Email)

	_, err = repo.FindEntryByID(context.Background(), 9999)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetErrorType(err))
}

func TestWaitlistRepository_AppendEntries(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	ctx := context.Background()

	written, err := repo.AppendEntries(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, written)

	rows := make([]*models.WaitlistEntry, 0, 450)
	for i := 0; i < 450; i++ {
		rows = append(rows, &models.WaitlistEntry{
			Email:       "bulk@reform.app",
			SubmittedAt: time.Now().UTC(),
			Source:      "import",
			Status:      "Active",
			Platform:    models.PlatformUnknown,
		})
	}

	written, err = repo.AppendEntries(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(450), written)
}

func TestWaitlistRepository_CountBySource(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	ctx := context.Background()

	for _, source := range []string{"landing_page", "landing_page_image", "landing_page", "api"} {
		_, err := repo.AppendEntry(ctx, &models.WaitlistEntry{
			Email:       "x@y.co",
			SubmittedAt: time.Now().UTC(),
			Source:      source,
			Status:      "Active",
			Platform:    models.PlatformUnknown,
		})
		require.NoError(t, err)
	}

	counts, err := repo.CountBySource(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, models.SourceCount{Source: "landing_page", Count: 2}, counts[0])
	assert.Equal(t, "api", counts[1].Source)
}

func TestWaitlistRepository_ApplyCleanup(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	ctx := context.Background()

	seeded := seedEntries(t, repo, "Jane@Reform.app", "jane@reform.app", "sam@reform.app")

	err := repo.ApplyCleanup(ctx, []uint{seeded[1].ID}, map[uint]string{seeded[0].ID: "jane@reform.app"})
	require.NoError(t, err)

	all, err := repo.AllEntries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "jane@reform.app", all[0].Email)
	assert.Equal(t, seeded[0].ID, all[0].ID)
	assert.Equal(t, "sam@reform.app", all[1].Email)
}
