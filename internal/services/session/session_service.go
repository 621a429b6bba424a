package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/apperrors"
	"github.com/mentorlink/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// UpdateWindow is how far back the throttle looks when counting a
	// mentor's prior edits to a session.
	UpdateWindow = 72 * time.Hour
	// MaxUpdatesPerWindow is how many edits fit inside one window.
	MaxUpdatesPerWindow = 2
)

// SessionService manages mentoring session schedules
type SessionService struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a SessionService
type Option func(*SessionService)

// WithClock overrides the service clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService creates a new session service
func NewSessionService(db *gorm.DB, opts ...Option) *SessionService {
	s := &SessionService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateSessionInput carries the fields a mentor may change. Nil
// pointers leave the current value untouched.
type UpdateSessionInput struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	MeetingLink *string    `json:"meeting_link,omitempty"`
}

func (in UpdateSessionInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.StartAt == nil &&
		in.EndAt == nil && in.MeetingLink == nil
}

// lockForUpdate takes a row lock on dialects that support one. sqlite
// has no FOR UPDATE grammar and serializes writes on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// UpdateSession applies a mentor's edit to a session they own. Each
// mentor gets at most MaxUpdatesPerWindow edits per session inside a
// rolling UpdateWindow; a throttled edit changes nothing, including
// the update log.
func (s *SessionService) UpdateSession(ctx context.Context, sessionID, mentorID uuid.UUID, input UpdateSessionInput) (*models.MentoringSession, error) {
	if input.empty() {
		return nil, apperrors.New(apperrors.KindInvalidStatus, "no fields to update")
	}
	if input.StartAt != nil && input.EndAt != nil && !input.EndAt.After(*input.StartAt) {
		return nil, apperrors.New(apperrors.KindInvalidDate, "end time must be after start time")
	}

	var session models.MentoringSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).
			First(&session, "id = ? AND mentor_id = ?", sessionID, mentorID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.KindNotFound, "session not found")
			}
			return apperrors.Wrap(apperrors.KindInternal, err, "finding session")
		}

		cutoff := s.now().Add(-UpdateWindow)
		var recent int64
		err = tx.Model(&models.SessionUpdateLog{}).
			Where("session_id = ? AND mentor_id = ? AND created_at > ?", sessionID, mentorID, cutoff).
			Count(&recent).Error
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "counting recent updates")
		}
		if recent >= MaxUpdatesPerWindow {
			return apperrors.New(apperrors.KindRateLimited,
				"session updated %d times in the last %d hours, try again later",
				recent, int(UpdateWindow.Hours()))
		}

		if input.Title != nil {
			session.Title = *input.Title
		}
		if input.Description != nil {
			session.Description = *input.Description
		}
		if input.StartAt != nil {
			session.StartAt = *input.StartAt
		}
		if input.EndAt != nil {
			session.EndAt = *input.EndAt
		}
		if input.MeetingLink != nil {
			session.MeetingLink = *input.MeetingLink
		}
		if err := tx.Save(&session).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "updating session")
		}

		entry := models.SessionUpdateLog{
			SessionID: sessionID,
			MentorID:  mentorID,
			CreatedAt: s.now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "recording update")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession returns a session by id
func (s *SessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.MentoringSession, error) {
	var session models.MentoringSession
	err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "session not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "finding session")
	}
	return &session, nil
}

// ListSessionsByMentor returns every session a mentor owns
func (s *SessionService) ListSessionsByMentor(ctx context.Context, mentorID uuid.UUID) ([]models.MentoringSession, error) {
	var sessions []models.MentoringSession
	err := s.db.WithContext(ctx).
		Where("mentor_id = ?", mentorID).
		Order("start_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "listing sessions")
	}
	return sessions, nil
}
