package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
	"github.com/noah-isme/aims-registration-api/pkg/export"
	"github.com/noah-isme/aims-registration-api/pkg/storage"
)

var slipHeaders = []string{"Course", "Name", "Faculty", "Credits", "Category", "Type"}

type ledgerViewer interface {
	View(ctx context.Context, studentID string) (*models.LedgerView, error)
}

type slipStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(now time.Time, ttl time.Duration) ([]string, error)
}

type slipRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// SlipConfig tunes slip export.
type SlipConfig struct {
	APIPrefix string
	Clock     func() time.Time
}

// SlipDownload is an opened slip ready to stream. The caller closes File.
type SlipDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// SlipService renders registration slips and serves them through signed links.
type SlipService struct {
	ledgers   ledgerViewer
	storage   slipStorage
	signer    *storage.SignedURLSigner
	renderers map[models.SlipFormat]slipRenderer
	logger    *zap.Logger
	cfg       SlipConfig
}

// NewSlipService constructs a SlipService with CSV and PDF renderers.
func NewSlipService(ledgers ledgerViewer, store slipStorage, signer *storage.SignedURLSigner, cfg SlipConfig, logger *zap.Logger) *SlipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &SlipService{
		ledgers: ledgers,
		storage: store,
		signer:  signer,
		renderers: map[models.SlipFormat]slipRenderer{
			models.SlipFormatCSV: export.NewCSVExporter(),
			models.SlipFormatPDF: export.NewPDFExporter(map[string]float64{"Name": 3, "Faculty": 2, "Category": 1.6}),
		},
		logger: logger,
		cfg:    cfg,
	}
}

// Export renders the student's current ledger and returns a signed link.
func (s *SlipService) Export(ctx context.Context, studentID string, format models.SlipFormat) (*models.SlipResult, error) {
	if format == "" {
		format = models.SlipFormatPDF
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported slip format %q", format))
	}

	view, err := s.ledgers.View(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(view.Selections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptySelection, "no courses selected to print")
	}

	now := s.cfg.Clock().UTC()
	payload, err := renderer.Render(s.buildDataset(view, now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render slip")
	}

	id := uuid.NewString()
	name := fmt.Sprintf("%s/%s.%s", sanitizeFilename(studentID), id, format)
	relPath, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store slip")
	}

	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign slip link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("registration slip generated",
		zap.String("student_id", studentID), zap.String("slip_id", id), zap.String("format", string(format)), zap.Int("bytes", len(payload)))

	return &models.SlipResult{
		ID:        id,
		Format:    format,
		Token:     token,
		URL:       fmt.Sprintf("%s/slips/download?token=%s", prefix, url.QueryEscape(token)),
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates a token and opens the referenced slip.
func (s *SlipService) Download(ctx context.Context, token string) (*SlipDownload, error) {
	id, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download link")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "slip no longer available")
	}

	format := models.SlipFormatCSV
	if strings.HasSuffix(relPath, "."+string(models.SlipFormatPDF)) {
		format = models.SlipFormatPDF
	}
	return &SlipDownload{
		File:        file,
		Filename:    fmt.Sprintf("registration-slip-%s.%s", id, format),
		ContentType: s.renderers[format].ContentType(),
	}, nil
}

// Cleanup removes slips whose links can no longer be valid.
func (s *SlipService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.Clock(), s.signer.TTL())
}

// StartCleanup runs Cleanup every interval until ctx is cancelled.
func (s *SlipService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.Cleanup()
				if err != nil {
					s.logger.Warn("slip cleanup failed", zap.Error(err))
					continue
				}
				if len(deleted) > 0 {
					s.logger.Info("expired slips removed", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}

func (s *SlipService) buildDataset(view *models.LedgerView, generatedAt time.Time) export.Dataset {
	rows := make([]map[string]string, 0, len(view.Selections))
	for _, sel := range view.Selections {
		rows = append(rows, map[string]string{
			"Course":   sel.Course.ID,
			"Name":     sel.Course.Name,
			"Faculty":  sel.Course.Faculty,
			"Credits":  strconv.Itoa(sel.Course.Credits),
			"Category": string(sel.Course.Category),
			"Type":     string(sel.RegistrationType),
		})
	}

	summary := [][2]string{
		{"Total credits", strconv.Itoa(view.TotalCredits)},
		{"Credit range", fmt.Sprintf("%d-%d", view.Rules.Min, view.Rules.Max)},
	}
	if view.BelowMinimum {
		summary = append(summary, [2]string{"Warning", fmt.Sprintf("below the minimum of %d credits", view.Rules.Min)})
	}

	return export.Dataset{
		Title: "Course Registration Slip",
		Preamble: [][2]string{
			{"Student", view.StudentID},
			{"Status", string(view.Status)},
			{"Deadline", view.Deadline.UTC().Format("2006-01-02 15:04 MST")},
			{"Generated", generatedAt.Format("2006-01-02 15:04 MST")},
		},
		Headers: slipHeaders,
		Rows:    rows,
		Summary: summary,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
