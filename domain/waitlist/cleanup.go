package waitlist

import (
	"fmt"
	"strings"

	"github.com/akeren/waitlist-landing/internal/models"
	"golang.org/x/text/unicode/norm"
)

const (
	ReasonDuplicate = "duplicate"
	ReasonInvalid   = "invalid"
	ReasonTest      = "test"
)

// DefaultTestPatterns mark rows created while trying out the form.
var DefaultTestPatterns = []string{"test@", "example.com"}

// firstDataRow is the row number of the first entry when the header occupies row 1.
const firstDataRow = 2

type CleanupReport struct {
	Applied       bool     `json:"applied"`
	Message       string   `json:"message"`
	TotalEntries  int      `json:"total_entries"`
	ValidEntries  int      `json:"valid_entries"`
	RemovedTotal  int      `json:"removed_total"`
	Duplicates    int      `json:"removed_duplicates"`
	Invalid       int      `json:"removed_invalid"`
	TestData      int      `json:"removed_test"`
	Normalized    int      `json:"normalized"`
	DuplicateRows []string `json:"duplicates"`
	InvalidRows   []string `json:"invalid"`
	TestRows      []string `json:"test_entries"`

	removeIDs []uint
	rewrites  map[uint]string
}

// NormalizeEmail applies NFC, trims and lower-cases.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(email)))
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = NormalizeEmail(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchesAny(email string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(email, p) {
			return true
		}
	}
	return false
}

// Sweep classifies entries, which must be in row order. The first occurrence of an
// email is kept; later ones are reported against its row number. Nothing is mutated.
func Sweep(entries []*models.WaitlistEntry, testPatterns []string) *CleanupReport {
	patterns := normalizePatterns(testPatterns)
	report := &CleanupReport{
		TotalEntries:  len(entries),
		DuplicateRows: []string{},
		InvalidRows:   []string{},
		TestRows:      []string{},
		rewrites:      make(map[uint]string),
	}

	firstSeen := make(map[string]int, len(entries))

	for i, entry := range entries {
		row := i + firstDataRow
		email := NormalizeEmail(entry.Email)

		switch {
		case email == "":
			report.Invalid++
			report.InvalidRows = append(report.InvalidRows, fmt.Sprintf("Row %d: (empty email)", row))
			report.removeIDs = append(report.removeIDs, entry.ID)
		case matchesAny(email, patterns):
			report.TestData++
			report.TestRows = append(report.TestRows, fmt.Sprintf("Row %d: %s", row, email))
			report.removeIDs = append(report.removeIDs, entry.ID)
		default:
			if original, seen := firstSeen[email]; seen {
				report.Duplicates++
				report.DuplicateRows = append(report.DuplicateRows,
					fmt.Sprintf("Row %d: %s (duplicate of row %d)", row, email, original))
				report.removeIDs = append(report.removeIDs, entry.ID)
				continue
			}

			firstSeen[email] = row
			if email != entry.Email {
				report.rewrites[entry.ID] = email
			}
		}
	}

	report.ValidEntries = len(firstSeen)
	report.RemovedTotal = report.Duplicates + report.Invalid + report.TestData
	report.Normalized = len(report.rewrites)

	switch {
	case report.TotalEntries == 0:
		report.Message = "No data to clean up"
	case report.RemovedTotal == 0 && report.Normalized == 0:
		report.Message = "Waitlist is already clean"
	default:
		report.Message = fmt.Sprintf("%d entries to be removed", report.RemovedTotal)
	}

	return report
}

// HasChanges reports whether applying the sweep would modify the table.
func (r *CleanupReport) HasChanges() bool {
	return len(r.removeIDs) > 0 || len(r.rewrites) > 0
}
