package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/pkg/jobs"
	"github.com/noah-isme/placement-engine/pkg/notify"
)

type deliveryDispatcher interface {
	Enqueue(job jobs.Job) error
	TryEnqueue(job jobs.Job) error
	Pending() int
}

// NotificationService is the dispatcher side of notifications: it turns an
// event into one queued delivery per affected student and returns at once.
type NotificationService struct {
	queue   deliveryDispatcher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(queue deliveryDispatcher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, metrics: metrics, logger: logger}
}

// Emit queues one delivery per distinct student of the event and reports how
// many were accepted. It never blocks: deliveries that do not fit in the
// buffer are handed to a background goroutine that waits for free slots.
func (s *NotificationService) Emit(ctx context.Context, event models.NotificationEvent) int {
	if s == nil || s.queue == nil {
		return 0
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	queued := 0
	var overflow []jobs.Job
	seen := make(map[string]struct{}, len(event.Recipients))
	for _, recipient := range event.Recipients {
		if _, dup := seen[recipient.StudentID]; dup || recipient.StudentID == "" {
			continue
		}
		seen[recipient.StudentID] = struct{}{}

		delivery := models.Delivery{
			EventID:    event.ID,
			Type:       event.Type,
			JobID:      event.JobID,
			Company:    event.Company,
			Role:       event.Role,
			RoundLabel: event.RoundLabel,
			DeadLine:   event.DeadLine,
			Recipient:  recipient,
		}
		job := jobs.Job{
			ID:       fmt.Sprintf("%s:%s", event.ID, recipient.StudentID),
			Type:     string(event.Type),
			Payload:  delivery,
			Enqueued: event.OccurredAt,
		}
		if err := s.queue.TryEnqueue(job); err != nil {
			if !errors.Is(err, jobs.ErrQueueFull) {
				s.dropped(event, recipient.StudentID, err)
				continue
			}
			overflow = append(overflow, job)
		}
		queued++
	}
	if len(overflow) > 0 {
		s.logger.Warn("notification queue full, spilling deliveries",
			zap.String("event_id", event.ID),
			zap.Int("spilled", len(overflow)),
		)
		go s.drain(event, overflow)
	}
	s.metrics.SetNotificationPending(s.queue.Pending())
	s.logger.Debug("notification event emitted",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int("queued", queued),
	)
	return queued
}

// drain blocks on the queue for deliveries that overflowed the buffer.
func (s *NotificationService) drain(event models.NotificationEvent, pending []jobs.Job) {
	for _, job := range pending {
		if err := s.queue.Enqueue(job); err != nil {
			studentID := ""
			if delivery, ok := job.Payload.(models.Delivery); ok {
				studentID = delivery.Recipient.StudentID
			}
			s.dropped(event, studentID, err)
		}
	}
	s.metrics.SetNotificationPending(s.queue.Pending())
}

func (s *NotificationService) dropped(event models.NotificationEvent, studentID string, err error) {
	s.metrics.RecordNotification("queue", "dropped")
	s.logger.Error("downstreamDeliveryError",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("student_id", studentID),
		zap.Error(err),
	)
}

type notificationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type deliveryLedger interface {
	Claim(ctx context.Context, key string) (bool, error)
}

type emailSender interface {
	Send(ctx context.Context, msg notify.EmailMessage) error
}

type whatsappSender interface {
	Send(ctx context.Context, phone, templateID string, params []string) (string, error)
}

type offerLetterIssuer interface {
	Issue(ctx context.Context, student *models.Student, delivery models.Delivery) (string, error)
}

// NotificationChannels toggles the delivery adapters.
type NotificationChannels struct {
	Email    bool
	WhatsApp bool
}

// NotificationWorker bridges queued deliveries to the email and WhatsApp
// adapters, handing each (event, student, channel) over at most once.
type NotificationWorker struct {
	students  notificationStudentRepository
	ledger    deliveryLedger
	email     emailSender
	whatsapp  whatsappSender
	offers    offerLetterIssuer
	templates *TemplateSet
	channels  NotificationChannels
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationWorker constructs a worker. offers may be nil.
func NewNotificationWorker(students notificationStudentRepository, ledger deliveryLedger, email emailSender, whatsapp whatsappSender, offers offerLetterIssuer, templates *TemplateSet, channels NotificationChannels, metrics *MetricsService, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		students:  students,
		ledger:    ledger,
		email:     email,
		whatsapp:  whatsapp,
		offers:    offers,
		templates: templates,
		channels:  channels,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle processes one queued delivery. Only loading the student is retried;
// adapter failures are logged and dropped since the causing write stands.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	delivery, ok := job.Payload.(models.Delivery)
	if !ok {
		return fmt.Errorf("%w: unexpected payload %T", jobs.ErrPermanent, job.Payload)
	}
	log := w.logger.With(
		zap.String("event_id", delivery.EventID),
		zap.String("event_type", string(delivery.Type)),
		zap.String("student_id", delivery.Recipient.StudentID),
	)

	student, err := w.students.FindByID(ctx, delivery.Recipient.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: student %s not found", jobs.ErrPermanent, delivery.Recipient.StudentID)
		}
		return fmt.Errorf("load student: %w", err)
	}

	key := TemplateKey{Type: delivery.Type, Outcome: delivery.Recipient.Outcome}
	message, err := w.templates.Render(key, TemplateData{
		StudentName: student.Name,
		Company:     delivery.Company,
		Role:        delivery.Role,
		Comment:     delivery.Recipient.Comment,
		RoundLabel:  delivery.RoundLabel,
		DeadLine:    formatDeadline(delivery.DeadLine),
	})
	if err != nil {
		log.Error("downstreamDeliveryError", zap.String("stage", "template"), zap.Error(err))
		return nil
	}

	if w.channels.Email && student.Email != "" {
		w.deliver(ctx, log, delivery, models.ChannelEmail, func() error {
			msg := notify.EmailMessage{To: student.Email, ToName: student.Name, Subject: message.Subject, HTMLBody: message.HTMLBody}
			if delivery.Type == models.EventOfferFinalised && w.offers != nil {
				url, err := w.offers.Issue(ctx, student, delivery)
				if err != nil {
					log.Warn("offer letter unavailable, sending email without attachment", zap.Error(err))
				} else {
					msg.AttachmentURLs = []string{url}
				}
			}
			return w.email.Send(ctx, msg)
		})
	}
	if phone := student.ContactPhone(); w.channels.WhatsApp && phone != "" && message.WhatsAppTemplate != "" {
		w.deliver(ctx, log, delivery, models.ChannelWhatsApp, func() error {
			_, err := w.whatsapp.Send(ctx, phone, message.WhatsAppTemplate, message.WhatsAppParams)
			return err
		})
	}
	return nil
}

func (w *NotificationWorker) deliver(ctx context.Context, log *zap.Logger, delivery models.Delivery, channel models.NotificationChannel, send func() error) {
	claimed, err := w.ledger.Claim(ctx, deliveryKey(delivery, channel))
	if err != nil {
		w.metrics.RecordNotification(string(channel), "ledger_error")
		log.Error("downstreamDeliveryError", zap.String("channel", string(channel)), zap.String("stage", "ledger"), zap.Error(err))
		return
	}
	if !claimed {
		w.metrics.RecordNotification(string(channel), "duplicate")
		log.Debug("delivery already handed off", zap.String("channel", string(channel)))
		return
	}
	if err := send(); err != nil {
		w.metrics.RecordNotification(string(channel), "failed")
		log.Warn("downstreamDeliveryError", zap.String("channel", string(channel)), zap.Error(err))
		return
	}
	w.metrics.RecordNotification(string(channel), "sent")
}

func deliveryKey(delivery models.Delivery, channel models.NotificationChannel) string {
	return fmt.Sprintf("notify:%s:%s:%s", delivery.EventID, delivery.Recipient.StudentID, channel)
}

func formatDeadline(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02 Jan 2006 15:04 MST")
}
