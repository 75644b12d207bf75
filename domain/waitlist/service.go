package waitlist

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/akeren/waitlist-landing/internal/log"
	"github.com/akeren/waitlist-landing/internal/models"
	"github.com/akeren/waitlist-landing/pkg/constants"
	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
	"github.com/akeren/waitlist-landing/pkg/rowsink"
	"github.com/akeren/waitlist-landing/pkg/useragent"
	"github.com/akeren/waitlist-landing/pkg/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/akeren/waitlist-landing/domain/waitlist"

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type WaitlistService interface {
	// Capture validates a signup and appends it unless the guard already saw it.
	Capture(ctx context.Context, cmd CaptureCommand) (*CaptureResponse, error)

	// FindEntryByID retrieves a waitlist entry by its unique ID.
	FindEntryByID(ctx context.Context, id uint) (*WaitlistEntryResponse, error)

	ListEntries(ctx context.Context, limit, offset int) (*ListEntriesResponse, error)

	Stats(ctx context.Context) (*StatsResponse, error)

	// Export writes the table as CSV with the sheet header.
	Export(ctx context.Context, w io.Writer) error

	// Import appends legacy sheet rows as they are; the sweep cleans them afterwards.
	Import(ctx context.Context, r io.Reader) (*ImportResult, error)

	PreviewCleanup(ctx context.Context) (*CleanupReport, error)

	ApplyCleanup(ctx context.Context) (*CleanupReport, error)
}

// RowDispatcher forwards appended rows to remote sinks without blocking.
type RowDispatcher interface {
	Enqueue(row rowsink.Row) bool
}

type ServiceOptions struct {
	Guard        SubmissionGuard
	Dispatcher   RowDispatcher
	Metrics      *Metrics
	DedupeWindow time.Duration
	TestPatterns []string
}

type waitlistService struct {
	logger       *log.Logger
	repository   WaitlistRepository
	guard        SubmissionGuard
	dispatcher   RowDispatcher
	metrics      *Metrics
	dedupeWindow time.Duration
	testPatterns []string
	now          func() time.Time
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, opts ServiceOptions) WaitlistService {
	if opts.Guard == nil {
		opts.Guard = NewMemoryGuard()
	}
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = constants.DefaultDedupeWindow
	}
	if len(opts.TestPatterns) == 0 {
		opts.TestPatterns = DefaultTestPatterns
	}

	return &waitlistService{
		logger:       logger,
		repository:   repository,
		guard:        opts.Guard,
		dispatcher:   opts.Dispatcher,
		metrics:      opts.Metrics,
		dedupeWindow: opts.DedupeWindow,
		testPatterns: opts.TestPatterns,
		now:          time.Now,
	}
}

func (s *waitlistService) Capture(ctx context.Context, cmd CaptureCommand) (*CaptureResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "waitlist.Capture", trace.WithAttributes(
		attribute.Bool("waitlist.client_timestamp", strings.TrimSpace(cmd.Timestamp) != ""),
	))
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	email := strings.TrimSpace(cmd.Email)
	if email == "" {
		s.metrics.reject("missing_email")
		return nil, apperrors.NewInvalidRequestError("Email is required", nil)
	}
	if !validation.IsValidEmail(email) {
		s.metrics.reject("invalid_email")
		logger.Info("Rejected invalid email", "length", len(email))
		return nil, apperrors.NewInvalidRequestError("Invalid email format", nil)
	}

	source, err := normalizeSource(cmd.Source)
	if err != nil {
		s.metrics.reject("invalid_source")
		return nil, err
	}

	env := useragent.Detect(cmd.UserAgent)
	platform := platformFor(env)
	span.SetAttributes(
		attribute.String("waitlist.source", source),
		attribute.String("waitlist.platform", platform),
		attribute.String("waitlist.browser", env.DisplayName()),
	)

	submittedAt := s.now().UTC()
	response := &CaptureResponse{
		Email:       email,
		Source:      source,
		Status:      constants.StatusActive,
		Platform:    platform,
		Browser:     env.DisplayName(),
		SubmittedAt: formatTime(submittedAt),
	}

	key := guardKey(email)
	claimed, err := s.guard.Claim(ctx, key, s.dedupeWindow)
	held := err == nil
	if err != nil {
		// A broken guard must not lose signups; the sweep removes any duplicate later.
		logger.Warn("Submission guard unavailable, appending without dedupe", "error", err)
		claimed = true
	}
	if !claimed {
		s.metrics.dedupe()
		span.SetAttributes(attribute.Bool("waitlist.deduplicated", true))
		logger.Info("Collapsed duplicate submission", "source", source, "platform", platform)
		response.Deduplicated = true
		return response, nil
	}

	entry := &models.WaitlistEntry{
		Email:           email,
		SubmittedAt:     submittedAt,
		ClientTimestamp: parseClientTimestamp(cmd.Timestamp),
		Source:          source,
		Status:          constants.StatusActive,
		UserAgent:       truncate(cmd.UserAgent, constants.MaxUserAgentLength),
		Platform:        platform,
	}

	entry, err = s.repository.AppendEntry(ctx, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		logger.Error("Failed to append waitlist entry", "error", err)
		if held {
			// The next transport or a retry must be able to store the signup.
			if releaseErr := s.guard.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
				logger.Warn("Failed to release submission claim", "error", releaseErr)
			}
		}
		return nil, err
	}

	response.ID = entry.ID
	s.forward(ctx, entry)
	s.metrics.signup(source, platform)

	logger.Info("Captured waitlist signup", "id", entry.ID, "source", source, "platform", platform, "browser", env.DisplayName())

	return response, nil
}

func (s *waitlistService) forward(ctx context.Context, entry *models.WaitlistEntry) {
	if s.dispatcher == nil {
		return
	}

	row := rowsink.Row{
		Email:         entry.Email,
		Timestamp:     entry.SubmittedAt,
		Source:        entry.Source,
		Status:        entry.Status,
		CorrelationID: log.GetOrGenerateCorrelationID(ctx),
	}
	if !s.dispatcher.Enqueue(row) {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Warn("Row sink queue full, row not forwarded", "id", entry.ID)
	}
}

func (s *waitlistService) FindEntryByID(ctx context.Context, id uint) (*WaitlistEntryResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if id == 0 {
		logger.Error("FindEntryByID received invalid ID")
		return nil, apperrors.NewInvalidRequestError("invalid entry ID", nil)
	}

	entry, err := s.repository.FindEntryByID(ctx, id)
	if err != nil {
		logger.Error("Failed to find waitlist entry", "id", id, "error", err)
		return nil, err
	}

	response := ToWaitlistEntryResponse(entry)
	return &response, nil
}

func (s *waitlistService) ListEntries(ctx context.Context, limit, offset int) (*ListEntriesResponse, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		return nil, apperrors.NewInvalidRequestError("offset must not be negative", nil)
	}

	entries, total, err := s.repository.ListEntries(ctx, limit, offset)
	if err != nil {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Error("Failed to list waitlist entries", "error", err)
		return nil, err
	}

	return &ListEntriesResponse{
		Entries: ToWaitlistEntryResponses(entries),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

func (s *waitlistService) Stats(ctx context.Context) (*StatsResponse, error) {
	total, err := s.repository.CountEntries(ctx)
	if err != nil {
		return nil, err
	}

	bySource, err := s.repository.CountBySource(ctx)
	if err != nil {
		return nil, err
	}
	if bySource == nil {
		bySource = []models.SourceCount{}
	}

	return &StatsResponse{Total: total, BySource: bySource}, nil
}

func (s *waitlistService) PreviewCleanup(ctx context.Context) (*CleanupReport, error) {
	entries, err := s.repository.AllEntries(ctx)
	if err != nil {
		return nil, err
	}

	report := Sweep(entries, s.testPatterns)

	log.GetLoggerInstanceFromContext(ctx, s.logger).Info("Cleanup preview",
		"total", report.TotalEntries,
		"valid", report.ValidEntries,
		"duplicates", report.Duplicates,
		"invalid", report.Invalid,
		"test", report.TestData,
	)

	return report, nil
}

func (s *waitlistService) ApplyCleanup(ctx context.Context) (*CleanupReport, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "waitlist.ApplyCleanup", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entries, err := s.repository.AllEntries(ctx)
	if err != nil {
		return nil, err
	}

	report := Sweep(entries, s.testPatterns)
	if report.HasChanges() {
		if err := s.repository.ApplyCleanup(ctx, report.removeIDs, report.rewrites); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cleanup failed")
			logger.Error("Failed to apply waitlist cleanup", "error", err)
			return nil, err
		}
	}

	report.Applied = true
	if report.TotalEntries > 0 {
		report.Message = "Waitlist cleaned successfully!"
	}
	s.metrics.cleanup(report)

	span.SetAttributes(attribute.Int("waitlist.cleanup.removed", report.RemovedTotal))
	logger.Info("Cleanup applied",
		"total", report.TotalEntries,
		"valid", report.ValidEntries,
		"removed", report.RemovedTotal,
		"normalized", report.Normalized,
	)

	return report, nil
}

func normalizeSource(raw string) (string, error) {
	source := strings.TrimSpace(raw)
	if source == "" {
		return constants.DefaultSource, nil
	}
	if len(source) > constants.MaxSourceLength {
		return "", apperrors.NewInvalidRequestError("Source is too long", nil)
	}
	for _, r := range source {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return "", apperrors.NewInvalidRequestError("Source must contain only printable ASCII characters", nil)
		}
	}
	return source, nil
}

// parseClientTimestamp keeps only well-formed ISO-8601 values; the server time is authoritative.
func parseClientTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func platformFor(env useragent.Environment) string {
	switch env.Platform {
	case useragent.PlatformIOS:
		return models.PlatformIOS
	case useragent.PlatformAndroid:
		return models.PlatformAndroid
	case useragent.PlatformDesktop:
		return models.PlatformDesktop
	default:
		return models.PlatformUnknown
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
