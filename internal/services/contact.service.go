package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mhkarimi/portfolio-backend/internal/device"
	gateway "github.com/mhkarimi/portfolio-backend/internal/gateways"
	"github.com/mhkarimi/portfolio-backend/internal/model"
	"github.com/mhkarimi/portfolio-backend/internal/sanitize"
	"github.com/mhkarimi/portfolio-backend/pkg/logger"
	"github.com/mhkarimi/portfolio-backend/pkg/prom"
)

// NotConfiguredError is recorded as the delivery error when telegram
// credentials are absent and the notifier is never invoked.
const NotConfiguredError = "not configured"

type MessageRepository interface {
	Append(ctx context.Context, m *model.Message) (*model.Message, error)
	List(ctx context.Context) ([]*model.Message, error)
	Get(ctx context.Context, id int64) (*model.Message, error)
	Update(ctx context.Context, id int64, mutate func(*model.Message)) (*model.Message, error)
	Delete(ctx context.Context, id int64) error
}

type Notifier interface {
	Send(ctx context.Context, m *model.Message) gateway.DeliveryResult
}

type GeoResolver interface {
	Lookup(ip string) *model.IPInfo
}

type SpamDetector interface {
	IsSpam(text string) bool
}

// ContactService composes the submission pipeline: sanitize → validate →
// spam-check → store → notify → record delivery status.
type ContactService struct {
	repo     MessageRepository
	notifier Notifier     // nil when telegram credentials are absent
	geo      GeoResolver  // nil disables lookups
	detector SpamDetector
}

func NewContactService(repo MessageRepository, notifier Notifier, geo GeoResolver, detector SpamDetector) *ContactService {
	return &ContactService{
		repo:     repo,
		notifier: notifier,
		geo:      geo,
		detector: detector,
	}
}

// SubmitResult reports what happened to a submission. Message is nil for
// spam: nothing was stored, the caller still reports success.
type SubmitResult struct {
	Message          *model.Message
	TelegramNotified bool
	Spam             bool
}

// Submit runs the pipeline for one contact-form submission. Validation
// failures return a *sanitize.ValidationError and store nothing. Spam is
// silently dropped before any store write so the sender cannot tell they
// were detected. Once the message is durably stored, notification failure
// no longer fails the submission.
func (s *ContactService) Submit(ctx context.Context, req model.ContactRequest, clientIP, userAgent string) (*SubmitResult, error) {
	name := sanitize.Clean(req.Name)
	email := sanitize.Clean(req.Email)
	subject := sanitize.Clean(req.Subject)
	message := sanitize.Clean(req.Message)

	if err := sanitize.ValidateContact(name, email, message); err != nil {
		prom.IncSubmission("rejected")
		return nil, err
	}

	if s.detector != nil && s.detector.IsSpam(name+" "+subject+" "+message) {
		logger.Warn("spam detected, dropping submission", "email", email, "ip", clientIP)
		prom.IncSpamDetected()
		prom.IncSubmission("spam")
		return &SubmitResult{Spam: true}, nil
	}

	if subject == "" {
		subject = model.DefaultSubject
	}

	m := &model.Message{
		Name:      name,
		Email:     email,
		Subject:   subject,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
		IP:        clientIP,
	}
	if s.geo != nil && clientIP != "" {
		m.IPInfo = s.geo.Lookup(clientIP)
	}
	if userAgent != "" {
		m.DeviceInfo = device.Parse(userAgent)
	}

	stored, err := s.repo.Append(ctx, m)
	if err != nil {
		prom.IncSubmission("failed")
		return nil, fmt.Errorf("store message: %w", err)
	}
	prom.IncSubmission("accepted")
	logger.Info("new contact message stored", "message_id", stored.ID, "email", email, "ip", clientIP)

	notified := s.deliver(ctx, stored, nil)
	return &SubmitResult{Message: stored, TelegramNotified: notified}, nil
}

func (s *ContactService) List(ctx context.Context) ([]*model.Message, error) {
	return s.repo.List(ctx)
}

func (s *ContactService) Get(ctx context.Context, id int64) (*model.Message, error) {
	return s.repo.Get(ctx, id)
}

func (s *ContactService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Resend re-runs delivery for an already-stored message and stamps
// telegramRetryAt alongside the refreshed status fields.
func (s *ContactService) Resend(ctx context.Context, id int64) (bool, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	now := time.Now().Format(time.RFC3339)
	return s.deliver(ctx, m, &now), nil
}

// VisitorInfo resolves the caller's own ip and device blocks.
func (s *ContactService) VisitorInfo(ip, userAgent string) (*model.IPInfo, *model.DeviceInfo) {
	info := model.UnknownIPInfo(ip)
	if s.geo != nil {
		info = s.geo.Lookup(ip)
	}
	return info, device.Parse(userAgent)
}

// deliver attempts notification and records the outcome on the stored
// message. Status fields are only ever touched here, after the attempt
// sequence has completed.
func (s *ContactService) deliver(ctx context.Context, m *model.Message, retryAt *string) bool {
	var res gateway.DeliveryResult
	if s.notifier == nil {
		res = gateway.DeliveryResult{Error: NotConfiguredError}
	} else {
		start := time.Now()
		res = s.notifier.Send(ctx, m)
		outcome := "delivered"
		if !res.Success {
			outcome = "failed"
		}
		prom.ObserveTelegramDelivery(time.Since(start).Seconds(), outcome)
	}

	var errPtr *string
	if !res.Success {
		e := res.Error
		errPtr = &e
	}
	if _, err := s.repo.Update(ctx, m.ID, func(mm *model.Message) {
		mm.TelegramSent = res.Success
		mm.TelegramError = errPtr
		if retryAt != nil {
			mm.TelegramRetryAt = retryAt
		}
	}); err != nil {
		logger.Error("failed to record delivery status", "message_id", m.ID, "error", err)
	}

	if !res.Success && s.notifier != nil {
		logger.Warn("telegram notification failed", "message_id", m.ID, "error", res.Error, "network", res.IsNetworkError)
	}
	return res.Success
}
