package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/export"
	"github.com/quotecraft/machine-quote-api/pkg/storage"
)

const (
	// ExportFormatPDF and ExportFormatCSV are the supported document formats.
	ExportFormatPDF = "pdf"
	ExportFormatCSV = "csv"
)

type exportQuotationLoader interface {
	Get(ctx context.Context, actor Actor, id string) (*models.QuotationDetail, error)
}

// ExportService renders quotations into downloadable documents. Rendered
// files are stored on disk and handed out through signed, expiring URLs.
type ExportService struct {
	quotations exportQuotationLoader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	storage    *storage.LocalStorage
	signer     *storage.SignedURLSigner
	basePath   string
	logger     *zap.Logger
}

// NewExportService constructs an ExportService. basePath is the public route
// prefix download tokens are appended to.
func NewExportService(quotations exportQuotationLoader, store *storage.LocalStorage, signer *storage.SignedURLSigner, basePath string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		quotations: quotations,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		storage:    store,
		signer:     signer,
		basePath:   strings.TrimRight(basePath, "/"),
		logger:     logger,
	}
}

// Export renders the quotation in the requested format, stores the file and
// returns a signed download link.
func (s *ExportService) Export(ctx context.Context, actor Actor, id, format string) (*models.ExportResult, error) {
	quotation, err := s.quotations.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	filename, data, err := s.render(quotation, format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(filename, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(quotation.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.logger.Sugar().Infow("quotation exported", "quotation_id", quotation.ID, "format", format, "file", relPath)
	return &models.ExportResult{
		Format:      format,
		Filename:    filename,
		DownloadURL: s.basePath + "/" + token,
		ExpiresAt:   expiresAt,
	}, nil
}

// RenderPDF renders the quotation PDF without storing it, for inline
// responses.
func (s *ExportService) RenderPDF(ctx context.Context, actor Actor, id string) (string, []byte, error) {
	quotation, err := s.quotations.Get(ctx, actor, id)
	if err != nil {
		return "", nil, err
	}
	return s.renderPDF(quotation)
}

// Download resolves a signed token back to the stored file.
func (s *ExportService) Download(token string) (string, []byte, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")
	}
	data, err := s.storage.Read(relPath)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "exported file no longer available")
	}
	return path.Base(relPath), data, nil
}

// CleanupExpired removes stored exports older than the signer TTL.
func (s *ExportService) CleanupExpired(ttl time.Duration) {
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Sugar().Warnw("export cleanup failed", "error", err)
		return
	}
	if len(removed) > 0 {
		s.logger.Sugar().Infow("expired exports removed", "count", len(removed))
	}
}

func (s *ExportService) render(quotation *models.QuotationDetail, format string) (string, []byte, error) {
	switch format {
	case ExportFormatCSV:
		return s.renderCSV(quotation)
	case ExportFormatPDF:
		return s.renderPDF(quotation)
	default:
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *ExportService) renderCSV(quotation *models.QuotationDetail) (string, []byte, error) {
	data, err := s.csv.Render(buildDataset(quotation))
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return exportFilename(quotation, ExportFormatCSV), data, nil
}

func (s *ExportService) renderPDF(quotation *models.QuotationDetail) (string, []byte, error) {
	data, err := s.pdf.Render(buildDataset(quotation), fmt.Sprintf("Quotation %s", quotation.QuotationNumber))
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return exportFilename(quotation, ExportFormatPDF), data, nil
}

func exportFilename(quotation *models.QuotationDetail, format string) string {
	return fmt.Sprintf("%s-v%d.%s", quotation.QuotationNumber, quotation.Version, format)
}

func buildDataset(quotation *models.QuotationDetail) export.Dataset {
	summary := [][2]string{
		{"Quotation", quotation.QuotationNumber},
		{"Title", quotation.Title},
		{"Customer", quotation.CustomerName},
		{"Status", string(quotation.Status)},
		{"Version", fmt.Sprintf("%d", quotation.Version)},
		{"Total", fmt.Sprintf("%.2f %s", quotation.TotalPrice, quotation.Currency)},
	}
	if quotation.MachineName != nil {
		summary = append(summary, [2]string{"Machine", *quotation.MachineName})
	}
	if quotation.ValidUntil != nil {
		summary = append(summary, [2]string{"Valid until", quotation.ValidUntil.Format("2006-01-02")})
	}

	headers := []string{"Configuration", "Type", "Selected Option", "Custom Value", "Price", "Notes"}
	rows := make([]map[string]string, 0, len(quotation.Configurations))
	for _, row := range quotation.Configurations {
		record := map[string]string{
			"Configuration": row.ConfigurationName,
			"Type":          string(row.ConfigurationType),
		}
		if row.OptionDisplayName != nil {
			record["Selected Option"] = *row.OptionDisplayName
		}
		if row.CustomValue != nil {
			record["Custom Value"] = *row.CustomValue
		}
		if row.OptionPriceModifier != nil {
			record["Price"] = fmt.Sprintf("%.2f %s", *row.OptionPriceModifier, quotation.Currency)
		}
		if row.Notes != nil {
			record["Notes"] = *row.Notes
		}
		rows = append(rows, record)
	}
	return export.Dataset{Summary: summary, Headers: headers, Rows: rows}
}
