package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"os"
	"time"

	"review-assignment-api/config"
	"review-assignment-api/models"

	"gorm.io/gorm"
)

const dispatchBatchSize = 50

// NotificationStore owns the invitation e-mail outbox rows. Scheduling
// enqueues a row; the dispatcher reads the due ones and records the outcome
// of each attempt back on the row.
type NotificationStore interface {
	Enqueue(ctx context.Context, row *models.InvitationNotification) error
	// Due returns up to limit unsent rows whose scheduled time has arrived.
	Due(ctx context.Context, at time.Time, limit int) ([]models.InvitationNotification, error)
	MarkSent(ctx context.Context, notificationID int, sentAt time.Time, attempts int) error
	RecordFailure(ctx context.Context, notificationID int, attempts int, lastError string) error
}

type gormNotificationStore struct {
	db *gorm.DB
}

func NewNotificationStore(db *gorm.DB) NotificationStore {
	return &gormNotificationStore{db: db}
}

func (s *gormNotificationStore) Enqueue(ctx context.Context, row *models.InvitationNotification) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}
	return nil
}

func (s *gormNotificationStore) Due(ctx context.Context, at time.Time, limit int) ([]models.InvitationNotification, error) {
	var due []models.InvitationNotification
	if err := s.db.WithContext(ctx).
		Where("sent_at IS NULL AND scheduled_at <= ?", at).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&due).Error; err != nil {
		return nil, fmt.Errorf("failed to load due notifications: %w", err)
	}
	return due, nil
}

func (s *gormNotificationStore) MarkSent(ctx context.Context, notificationID int, sentAt time.Time, attempts int) error {
	return s.db.WithContext(ctx).Model(&models.InvitationNotification{}).
		Where("notification_id = ?", notificationID).
		Updates(map[string]interface{}{
			"sent_at":    sentAt,
			"attempts":   attempts,
			"last_error": nil,
		}).Error
}

func (s *gormNotificationStore) RecordFailure(ctx context.Context, notificationID int, attempts int, lastError string) error {
	return s.db.WithContext(ctx).Model(&models.InvitationNotification{}).
		Where("notification_id = ?", notificationID).
		Updates(map[string]interface{}{
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}

// NotificationService implements staggered invitation e-mail delivery as an
// outbox: scheduling writes a row, a dispatcher loop sends whatever is due.
// Delivery failure is recorded on the row and never touches invitation
// state.
type NotificationService struct {
	store NotificationStore
	send  func(to []string, subject, body string) error
	now   func() time.Time
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{
		store: store,
		send:  config.SendMail,
		now:   time.Now,
	}
}

// ScheduleInvitationEmail queues the invitation e-mail for delivery at
// sendAt. Errors are logged, not returned: the invitation is already
// persisted and a lost notification must not unwind it.
func (s *NotificationService) ScheduleInvitationEmail(ctx context.Context, inv *models.ReviewerInvitation, reviewer *models.Reviewer, manuscript *models.Manuscript, sendAt time.Time) {
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	subject := fmt.Sprintf("Invitation to review: %s", manuscript.Title)
	body := fmt.Sprintf(`<p>Dear %s,</p>
<p>You have been invited to review the manuscript <strong>%s</strong> (%s).</p>
<p>Please respond by <strong>%s</strong>. If you accept, the review is due by <strong>%s</strong>.</p>
<p><a href="%s/review-invitations/%s">View the invitation and respond</a></p>`,
		html.EscapeString(reviewer.FullName),
		html.EscapeString(manuscript.Title),
		html.EscapeString(manuscript.Field),
		inv.ResponseDeadline.Format("2 January 2006"),
		inv.ReviewDeadline.Format("2 January 2006"),
		baseURL,
		inv.Token,
	)
	if inv.CustomMessage != nil && *inv.CustomMessage != "" {
		body += fmt.Sprintf("<p>Message from the editor:</p><blockquote>%s</blockquote>", html.EscapeString(*inv.CustomMessage))
	}

	now := s.now()
	row := &models.InvitationNotification{
		InvitationID:   inv.InvitationID,
		RecipientEmail: reviewer.Email,
		Subject:        subject,
		Body:           body,
		ScheduledAt:    sendAt,
		CreateAt:       &now,
	}
	if err := s.store.Enqueue(ctx, row); err != nil {
		log.Printf("Warning: failed to queue invitation email for invitation %d: %v", inv.InvitationID, err)
	}
}

// DispatchDue sends every queued notification whose scheduled time has
// arrived. Returns how many were sent and how many failed this pass.
func (s *NotificationService) DispatchDue(ctx context.Context) (sent, failed int, err error) {
	due, err := s.store.Due(ctx, s.now(), dispatchBatchSize)
	if err != nil {
		return 0, 0, err
	}

	for i := range due {
		row := &due[i]
		attempts := row.Attempts + 1
		if sendErr := s.send([]string{row.RecipientEmail}, row.Subject, row.Body); sendErr != nil {
			failed++
			log.Printf("Warning: failed to send invitation notification %d: %v", row.NotificationID, sendErr)
			if err := s.store.RecordFailure(ctx, row.NotificationID, attempts, sendErr.Error()); err != nil {
				log.Printf("Warning: failed to update notification %d: %v", row.NotificationID, err)
			}
			continue
		}
		sent++
		if err := s.store.MarkSent(ctx, row.NotificationID, s.now(), attempts); err != nil {
			log.Printf("Warning: failed to update notification %d: %v", row.NotificationID, err)
		}
	}
	return sent, failed, nil
}

// StartDispatcher runs DispatchDue on a fixed interval until ctx is done.
func (s *NotificationService) StartDispatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if sent, failed, err := s.DispatchDue(ctx); err != nil {
					log.Printf("Notification dispatch failed: %v", err)
				} else if sent > 0 || failed > 0 {
					log.Printf("Notification dispatch: %d sent, %d failed", sent, failed)
				}
			}
		}
	}()
}
