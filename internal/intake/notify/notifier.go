package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"safestep/internal/intake/models"
	"safestep/pkg/email"
)

//go:generate mockgen -source=notifier.go -destination=mocks/mocks.go -package=mocks Sender

var tracer = otel.Tracer("safestep/internal/intake/notify")

// TemplatedEmail is one templated message to a single recipient.
type TemplatedEmail struct {
	Source   string
	To       string
	Template string
	Data     string
}

// Sender delivers a templated email.
type Sender interface {
	SendTemplatedEmail(ctx context.Context, msg TemplatedEmail) error
}

// TemplateData is the payload rendered into the acceptance-request template.
type TemplateData struct {
	RID     string `json:"RID"`
	ECName  string `json:"ecName"`
	GreenID string `json:"greenId"`
}

// Outcome reports what Notify did with a request.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Notifier asks a newly linked contact to accept a responsibility.
type Notifier struct {
	sender   Sender
	source   string
	template string
	logger   *zap.Logger
}

func New(sender Sender, source, template string, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		source:   source,
		template: template,
		logger:   logger,
	}
}

// Notify sends the acceptance request for resp to contact. Contacts without an
// email are skipped. Send failures are logged with the RID and reported only
// through the outcome; they never fail the batch.
func (n *Notifier) Notify(ctx context.Context, resp models.Responsibility, contact models.EmergencyContact) Outcome {
	ctx, span := tracer.Start(ctx, "notify.acceptance_request")
	defer span.End()
	span.SetAttributes(attribute.String("rid", resp.RID.String()))

	if contact.Email == "" {
		n.logger.Info("contact has no email, skipping notification",
			zap.String("rid", resp.RID.String()),
			zap.String("ecid", resp.ECID.String()),
		)
		return OutcomeSkipped
	}

	data, err := renderData(resp, contact)
	if err != nil {
		n.logger.Error("render notification data", zap.String("rid", resp.RID.String()), zap.Error(err))
		return OutcomeFailed
	}

	err = n.sender.SendTemplatedEmail(ctx, TemplatedEmail{
		Source:   n.source,
		To:       contact.Email,
		Template: n.template,
		Data:     data,
	})
	if err != nil {
		span.RecordError(err)
		n.logger.Error("send acceptance request failed",
			zap.String("rid", resp.RID.String()),
			zap.Error(err),
		)
		return OutcomeFailed
	}

	n.logger.Debug("acceptance request sent", zap.String("rid", resp.RID.String()))
	return OutcomeSent
}

func renderData(resp models.Responsibility, contact models.EmergencyContact) (string, error) {
	name := contact.FirstName
	if name == "" {
		name = email.DeriveNameFromEmail(contact.Email)
	}
	raw, err := json.Marshal(TemplateData{
		RID:     resp.RID.String(),
		ECName:  name,
		GreenID: resp.GreenID.String(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal template data: %w", err)
	}
	return string(raw), nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendTemplatedEmail(_ context.Context, msg TemplatedEmail) error {
	s.logger.Info("templated email",
		zap.String("to", msg.To),
		zap.String("template", msg.Template),
		zap.String("data", msg.Data),
	)
	return nil
}
