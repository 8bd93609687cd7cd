package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/jobs"
)

const jobTypeQuotationMail = "quotation.mail"

// QuotationMail is the rendered outbound message for one quotation.
type QuotationMail struct {
	To              string
	Subject         string
	QuotationNumber string
	CustomerName    string
	TotalPrice      float64
	Currency        string
}

// MailSender delivers a quotation mail. Implementations decide the transport.
type MailSender interface {
	Send(ctx context.Context, mail QuotationMail) error
}

type mailCustomerLookup interface {
	FindByID(ctx context.Context, id string) (*models.Customer, error)
}

// MailService dispatches quotation mails through a background worker queue so
// a slow transport never blocks the request path.
type MailService struct {
	queue     *jobs.Queue
	sender    MailSender
	customers mailCustomerLookup
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewMailService constructs a MailService with its own worker queue.
func NewMailService(sender MailSender, customers mailCustomerLookup, metrics *MetricsService, cfg jobs.QueueConfig, logger *zap.Logger) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s := &MailService{
		sender:    sender,
		customers: customers,
		metrics:   metrics,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("quotation-mail", s.handle, cfg)
	return s
}

// Start launches the mail workers.
func (s *MailService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the mail workers.
func (s *MailService) Stop() {
	s.queue.Stop()
}

// DispatchQuotation enqueues a send job for the quotation.
func (s *MailService) DispatchQuotation(ctx context.Context, quotation *models.QuotationSummary) error {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeQuotationMail,
		Payload: quotation,
	}
	if err := s.queue.Enqueue(job); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue quotation mail")
	}
	s.metrics.RecordJobEnqueued(jobTypeQuotationMail)
	s.logger.Sugar().Infow("quotation mail enqueued", "job_id", job.ID, "quotation_id", quotation.ID)
	return nil
}

func (s *MailService) handle(ctx context.Context, job jobs.Job) error {
	quotation, ok := job.Payload.(*models.QuotationSummary)
	if !ok {
		s.logger.Sugar().Errorw("unexpected mail job payload", "job_id", job.ID, "type", job.Type)
		return nil
	}
	customer, err := s.customers.FindByID(ctx, quotation.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer %s: %w", quotation.CustomerID, err)
	}
	mail := QuotationMail{
		To:              customer.Email,
		Subject:         fmt.Sprintf("Quotation %s", quotation.QuotationNumber),
		QuotationNumber: quotation.QuotationNumber,
		CustomerName:    customer.CompanyName,
		TotalPrice:      quotation.TotalPrice,
		Currency:        quotation.Currency,
	}
	if err := s.sender.Send(ctx, mail); err != nil {
		return fmt.Errorf("send quotation mail %s: %w", quotation.QuotationNumber, err)
	}
	return nil
}

// LogMailSender writes outbound mails to the application log. It stands in
// for an SMTP transport in environments without one configured.
type LogMailSender struct {
	logger *zap.Logger
}

// NewLogMailSender constructs a LogMailSender.
func NewLogMailSender(logger *zap.Logger) *LogMailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailSender{logger: logger}
}

// Send logs the mail instead of delivering it.
func (s *LogMailSender) Send(_ context.Context, mail QuotationMail) error {
	s.logger.Sugar().Infow("quotation mail dispatched",
		"to", mail.To,
		"subject", mail.Subject,
		"quotation_number", mail.QuotationNumber,
		"total_price", mail.TotalPrice,
		"currency", mail.Currency,
	)
	return nil
}
