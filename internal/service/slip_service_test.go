package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
	"github.com/noah-isme/aims-registration-api/pkg/storage"
)

type ledgerViewerStub struct {
	view *models.LedgerView
	err  error
}

func (s ledgerViewerStub) View(ctx context.Context, studentID string) (*models.LedgerView, error) {
	return s.view, s.err
}

func slipView() *models.LedgerView {
	return &models.LedgerView{
		StudentID: "STU-1",
		Selections: []models.Selection{
			{Course: models.CourseOffering{ID: "CS101", Name: "Introduction to Programming", Faculty: "Dr. Rao", Credits: 3, Category: models.CategoryDepartmentalCore}, RegistrationType: models.RegistrationRegular},
			{Course: models.CourseOffering{ID: "HS201", Name: "Ethics and Society", Faculty: "Dr. Iyer", Credits: 2, Category: models.CategoryLiberalArts}, RegistrationType: models.RegistrationBacklog},
		},
		Deadline:     time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
		TotalCredits: 5,
		BelowMinimum: true,
		Status:       models.LedgerDraftInProgress,
		Rules:        models.CreditRules{Min: 12, Max: 30},
	}
}

func newSlipServiceForTest(t *testing.T, viewer ledgerViewer, clock *time.Time) *SlipService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	now := func() time.Time { return *clock }
	signer := storage.NewSignedURLSigner("slip-secret", 15*time.Minute).WithClock(now)
	return NewSlipService(viewer, store, signer, SlipConfig{APIPrefix: "/api/v1/", Clock: now}, nil)
}

func TestSlipExportAndDownloadCSV(t *testing.T) {
	now := time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC)
	svc := newSlipServiceForTest(t, ledgerViewerStub{view: slipView()}, &now)

	result, err := svc.Export(context.Background(), "STU-1", models.SlipFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.SlipFormatCSV, result.Format)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/slips/download?token="))
	assert.Equal(t, now.Add(15*time.Minute), result.ExpiresAt)

	download, err := svc.Download(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "text/csv", download.ContentType)
	assert.Equal(t, "registration-slip-"+result.ID+".csv", download.Filename)

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "Student,STU-1")
	assert.Contains(t, text, "CS101,Introduction to Programming,Dr. Rao,3,Departmental Core,Regular")
	assert.Contains(t, text, "Total credits,5")
	assert.Contains(t, text, "below the minimum of 12 credits")
}

func TestSlipExportDefaultsToPDF(t *testing.T) {
	now := time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC)
	svc := newSlipServiceForTest(t, ledgerViewerStub{view: slipView()}, &now)

	result, err := svc.Export(context.Background(), "STU-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.SlipFormatPDF, result.Format)

	download, err := svc.Download(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "application/pdf", download.ContentType)
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestSlipExportRejections(t *testing.T) {
	now := time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC)

	empty := slipView()
	empty.Selections = nil
	svc := newSlipServiceForTest(t, ledgerViewerStub{view: empty}, &now)
	_, err := svc.Export(context.Background(), "STU-1", models.SlipFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrEmptySelection)

	_, err = svc.Export(context.Background(), "STU-1", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	failing := newSlipServiceForTest(t, ledgerViewerStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "student identity required")}, &now)
	_, err = failing.Export(context.Background(), "", models.SlipFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSlipDownloadRejections(t *testing.T) {
	now := time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC)
	svc := newSlipServiceForTest(t, ledgerViewerStub{view: slipView()}, &now)

	result, err := svc.Export(context.Background(), "STU-1", models.SlipFormatCSV)
	require.NoError(t, err)

	_, err = svc.Download(context.Background(), result.Token+"0")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Download(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	now = now.Add(16 * time.Minute)
	_, err = svc.Download(context.Background(), result.Token)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSlipCleanupRemovesExpiredFiles(t *testing.T) {
	now := time.Now()
	svc := newSlipServiceForTest(t, ledgerViewerStub{view: slipView()}, &now)

	result, err := svc.Export(context.Background(), "STU-1", models.SlipFormatCSV)
	require.NoError(t, err)

	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Empty(t, removed)

	now = now.Add(time.Hour)
	removed, err = svc.Cleanup()
	require.NoError(t, err)
	assert.Len(t, removed, 1)

	now = now.Add(-time.Hour)
	_, err = svc.Download(context.Background(), result.Token)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "STU-1", sanitizeFilename("STU-1"))
	assert.Equal(t, "a-b-c", sanitizeFilename("a/b\\c"))
}
