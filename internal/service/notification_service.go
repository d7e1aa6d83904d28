package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
)

// NotificationService delivers emails for auth events. Delivery is
// best-effort: a failed send is logged and the challenge or token the
// account holds stays valid and verifiable.
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

// RegisterHandlers subscribes to auth events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.handleVerificationRequested)
	n.dispatcher.Subscribe(events.EventEmailVerificationRequested, n.handleVerificationRequested)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventAccountActivated, n.handleAccountActivated)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
}

func (n *NotificationService) handleVerificationRequested(ctx context.Context, event events.Event) error {
	n.logger.Info("verification email queued", zap.String("account_id", event.AccountID))
	n.sendEmailStub(ctx, event, "verify your email")
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	n.logger.Info("password reset email queued", zap.String("account_id", event.AccountID))
	n.sendEmailStub(ctx, event, "reset your password")
	return nil
}

func (n *NotificationService) handleAccountActivated(ctx context.Context, event events.Event) error {
	n.logger.Info("account activated", zap.String("account_id", event.AccountID))
	n.sendEmailStub(ctx, event, "welcome")
	return nil
}

func (n *NotificationService) handlePasswordChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("password changed", zap.String("account_id", event.AccountID))
	n.sendEmailStub(ctx, event, "your password was changed")
	return nil
}

func (n *NotificationService) sendEmailStub(_ context.Context, event events.Event, subject string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("account_id", event.AccountID),
		zap.String("subject", subject),
		zap.String("event_type", string(event.Type)))
}
