package waitlist

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/akeren/waitlist-landing/internal/models"
	"github.com/akeren/waitlist-landing/pkg/constants"
	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
)

// Layouts accepted in the Timestamp column of imported sheets.
var importTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"2006-01-02",
}

func (s *waitlistService) Export(ctx context.Context, w io.Writer) error {
	entries, err := s.repository.AllEntries(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(constants.SheetHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, entry := range entries {
		record := []string{entry.Email, formatTime(entry.SubmittedAt), entry.Source, entry.Status}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", entry.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	log.GetLoggerInstanceFromContext(ctx, s.logger).Info("Exported waitlist", "rows", len(entries))
	return nil
}

type columnIndex struct {
	email, timestamp, source, status int
}

func defaultColumns() columnIndex {
	return columnIndex{email: 0, timestamp: 1, source: 2, status: 3}
}

// headerColumns maps a header record to column positions. ok is false when the record
// is data rather than a header.
func headerColumns(record []string) (columnIndex, bool) {
	idx := columnIndex{email: -1, timestamp: -1, source: -1, status: -1}
	for i, name := range record {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "email":
			idx.email = i
		case "timestamp":
			idx.timestamp = i
		case "source":
			idx.source = i
		case "status":
			idx.status = i
		}
	}
	return idx, idx.email >= 0
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseImportTime(raw string) (time.Time, bool) {
	for _, layout := range importTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (s *waitlistService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	result := &ImportResult{}
	columns := defaultColumns()
	var entries []*models.WaitlistEntry

	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("malformed csv at line %d", line), err)
		}

		if line == 1 {
			if idx, ok := headerColumns(record); ok {
				columns = idx
				continue
			}
		}

		email := field(record, columns.email)
		if email == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: empty email", line))
			continue
		}

		submittedAt := s.now().UTC()
		if raw := field(record, columns.timestamp); raw != "" {
			if t, ok := parseImportTime(raw); ok {
				submittedAt = t
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: unparsed timestamp %q, using import time", line, raw))
			}
		}

		source := field(record, columns.source)
		if source == "" {
			source = constants.DefaultSource
		}
		source = truncate(source, constants.MaxSourceLength)

		status := field(record, columns.status)
		if status == "" {
			status = constants.StatusActive
		}

		entries = append(entries, &models.WaitlistEntry{
			Email:       truncate(email, constants.MaxEmailLength),
			SubmittedAt: submittedAt,
			Source:      source,
			Status:      status,
			Platform:    models.PlatformUnknown,
		})
	}

	written, err := s.repository.AppendEntries(ctx, entries)
	if err != nil {
		logger.Error("Failed to import waitlist rows", "error", err)
		return nil, err
	}

	result.Imported = int(written)
	logger.Info("Imported waitlist rows", "imported", result.Imported, "skipped", result.Skipped)

	return result, nil
}
