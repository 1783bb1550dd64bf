package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/clinic-crm/internal/config"
	"github.com/spec-kit/clinic-crm/internal/events"
)

// NotificationService reacts to auth domain events. Actual email/SMS delivery
// is an external collaborator; this service only shapes and logs the outbound
// message.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
	n.dispatcher.Subscribe(events.EventPasswordReset, n.handlePasswordReset)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.Int64("user_id", event.UserID))
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return nil
	}
	verifyURL := strings.TrimRight(n.cfg.AppURL, "/") + "/verify-email?token=" + payload.VerificationToken
	n.sendEmailStub(payload.Email, "verify your email", verifyURL)
	return nil
}

func (n *NotificationService) handlePasswordChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("PasswordChanged", zap.Int64("user_id", event.UserID))
	if payload, ok := event.Payload.(events.PasswordChangedPayload); ok {
		n.sendEmailStub(payload.Email, "your password was changed", "")
	}
	return nil
}

func (n *NotificationService) handlePasswordReset(ctx context.Context, event events.Event) error {
	n.logger.Info("PasswordResetRequested", zap.Int64("user_id", event.UserID))
	if payload, ok := event.Payload.(events.PasswordResetPayload); ok {
		n.sendEmailStub(payload.Email, "password reset", payload.ResetToken)
	}
	return nil
}

func (n *NotificationService) sendEmailStub(to, subject, detail string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("detail", detail))
}
