package waitlist

import (
	"testing"

	"github.com/akeren/waitlist-landing/internal/models"
	"github.com/stretchr/testify/assert"
)

func entries(emails ...string) []*models.WaitlistEntry {
	out := make([]*models.WaitlistEntry, 0, len(emails))
	for i, email := range emails {
		out = append(out, &models.WaitlistEntry{ID: uint(i + 1), Email: email})
	}
	return out
}

func TestSweep_KeepsFirstOccurrence(t *testing.T) {
	report := Sweep(entries("a@b.co", " A@B.co ", "c@d.co", "a@b.co"), DefaultTestPatterns)

	assert.Equal(t, 4, report.TotalEntries)
	assert.Equal(t, 2, report.ValidEntries)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, []string{
		"Row 3: a@b.co (duplicate of row 2)",
		"Row 5: a@b.co (duplicate of row 2)",
	}, report.DuplicateRows)
	assert.Equal(t, []uint{2, 4}, report.removeIDs)
	assert.Empty(t, report.rewrites)
	assert.Equal(t, "2 entries to be removed", report.Message)
}

func TestSweep_ClassifiesInvalidAndTestRows(t *testing.T) {
	report := Sweep(entries("", "test@reform.app", "jane@example.com", "   ", "sam@reform.app"), DefaultTestPatterns)

	assert.Equal(t, 2, report.Invalid)
	assert.Equal(t, []string{"Row 2: (empty email)", "Row 5: (empty email)"}, report.InvalidRows)
	assert.Equal(t, 2, report.TestData)
	assert.Equal(t, []string{"Row 3: test@reform.app", "Row 4: jane@example.com"}, report.TestRows)
	assert.Equal(t, 1, report.ValidEntries)
	assert.Equal(t, 4, report.RemovedTotal)
}

func TestSweep_TestRowsAreNotDuplicates(t *testing.T) {
	report := Sweep(entries("test@reform.app", "test@reform.app"), DefaultTestPatterns)

	assert.Equal(t, 2, report.TestData)
	assert.Zero(t, report.Duplicates)
}

func TestSweep_NormalizesKeptRows(t *testing.T) {
	report := Sweep(entries("Ren\u00e9@Reform.app", "rene\u0301@reform.app"), nil)

	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, map[uint]string{1: "ren\u00e9@reform.app"}, report.rewrites)
	assert.Equal(t, 1, report.Normalized)
	assert.True(t, report.HasChanges())
}

func TestSweep_CustomPatterns(t *testing.T) {
	report := Sweep(entries("qa+1@reform.app", "test@reform.app"), []string{" QA+ "})

	assert.Equal(t, []string{"Row 2: qa+1@reform.app"}, report.TestRows)
	assert.Equal(t, 1, report.ValidEntries)
}

func TestSweep_Messages(t *testing.T) {
	assert.Equal(t, "No data to clean up", Sweep(nil, DefaultTestPatterns).Message)

	clean := Sweep(entries("a@b.co", "c@d.co"), DefaultTestPatterns)
	assert.Equal(t, "Waitlist is already clean", clean.Message)
	assert.False(t, clean.HasChanges())
	assert.Empty(t, clean.DuplicateRows)
	assert.NotNil(t, clean.DuplicateRows)
}

func TestSweep_DoesNotMutateInput(t *testing.T) {
	rows := entries("A@B.co", "a@b.co")
	Sweep(rows, DefaultTestPatterns)

	assert.Equal(t, "A@B.co", rows[0].Email)
	assert.Equal(t, "a@b.co", rows[1].Email)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@reform.app", NormalizeEmail("  JANE@Reform.App\t"))
	assert.Equal(t, "", NormalizeEmail("   "))
}
