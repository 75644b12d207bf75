package waitlist

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/akeren/waitlist-landing/internal/models"
	"github.com/akeren/waitlist-landing/pkg/constants"
	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestWaitlistService_Export(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := NewMockWaitlistRepository(ctrl)
	service := newTestService(t, mockRepo, nil, nil)

	mockRepo.EXPECT().AllEntries(gomock.Any()).Return([]*models.WaitlistEntry{
		{ID: 1, Email: "a@b.co", SubmittedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC), Source: "landing_page", Status: "Active"},
		{ID: 2, Email: "c,d@e.co", SubmittedAt: time.Date(2026, 2, 3, 4, 6, 0, 0, time.UTC), Source: "landing_page_image", Status: "Active"},
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, service.Export(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Email,Timestamp,Source,Status", lines[0])
	assert.Equal(t, "a@b.co,2026-02-03T04:05:06Z,landing_page,Active", lines[1])
	assert.Equal(t, `"c,d@e.co",2026-02-03T04:06:00Z,landing_page_image,Active`, lines[2])
}

func TestWaitlistService_Import(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("maps a header and keeps rows as they are", func(t *testing.T) {
		mockRepo := NewMockWaitlistRepository(ctrl)
		service := newTestService(t, mockRepo, nil, nil)

		input := strings.Join([]string{
			"Timestamp,Email,Source,Status",
			"2025-11-02T10:00:00.000Z,Jane@Reform.app,landing_page_ios_image,Active",
			"11/3/2025 09:15:00, jane@reform.app ,,",
			",,landing_page,Active",
			"someday,sam@reform.app,landing_page,Active",
		}, "\n")

		mockRepo.EXPECT().
			AppendEntries(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rows []*models.WaitlistEntry) (int64, error) {
				require.Len(t, rows, 3)
				assert.Equal(t, "Jane@Reform.app", rows[0].Email)
				assert.Equal(t, time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC), rows[0].SubmittedAt)
				assert.Equal(t, "landing_page_ios_image", rows[0].Source)
				assert.Equal(t, "jane@reform.app", rows[1].Email)
				assert.Equal(t, time.Date(2025, 11, 3, 9, 15, 0, 0, time.UTC), rows[1].SubmittedAt)
				assert.Equal(t, constants.DefaultSource, rows[1].Source)
				assert.Equal(t, constants.StatusActive, rows[1].Status)
				assert.Equal(t, models.PlatformUnknown, rows[1].Platform)
				assert.Equal(t, service.now().UTC(), rows[2].SubmittedAt)
				return int64(len(rows)), nil
			})

		result, err := service.Import(context.Background(), strings.NewReader(input))

		require.NoError(t, err)
		assert.Equal(t, 3, result.Imported)
		assert.Equal(t, 1, result.Skipped)
		require.Len(t, result.Errors, 2)
		assert.Equal(t, "line 4: empty email", result.Errors[0])
		assert.Contains(t, result.Errors[1], "line 5: unparsed timestamp")
	})

	t.Run("headerless input uses sheet order", func(t *testing.T) {
		mockRepo := NewMockWaitlistRepository(ctrl)
		service := newTestService(t, mockRepo, nil, nil)

		mockRepo.EXPECT().
			AppendEntries(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rows []*models.WaitlistEntry) (int64, error) {
				require.Len(t, rows, 1)
				assert.Equal(t, "a@b.co", rows[0].Email)
				assert.Equal(t, "api", rows[0].Source)
				return 1, nil
			})

		result, err := service.Import(context.Background(), strings.NewReader("a@b.co,2025-01-01,api,Active\n"))

		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
	})

	t.Run("malformed csv", func(t *testing.T) {
		service := newTestService(t, NewMockWaitlistRepository(ctrl), nil, nil)

		_, err := service.Import(context.Background(), strings.NewReader("Email\n\"unterminated\n"))

		assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
	})
}
