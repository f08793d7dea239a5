package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/email"
	"github.com/eems-edu/examiner-service/internal/events"
	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
	"github.com/eems-edu/examiner-service/internal/validator"
)

// DefaultInviteTTL is applied when the request does not carry its own
// expiry window.
const DefaultInviteTTL = 14 * 24 * time.Hour

type inviteService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	notifier  NotificationService
	mailer    email.Mailer
	baseURL   string
	inviteTTL time.Duration
}

func NewInviteService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, notifier NotificationService, mailer email.Mailer, baseURL string, inviteTTL time.Duration) InviteService {
	if inviteTTL <= 0 {
		inviteTTL = DefaultInviteTTL
	}
	return &inviteService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		notifier:  notifier,
		mailer:    mailer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		inviteTTL: inviteTTL,
	}
}

// Create issues a token-keyed invitation for an approved exam. The email is
// sent best-effort after the row is persisted; a delivery failure never rolls
// the invitation back.
func (s *inviteService) Create(ctx context.Context, req *CreateInviteRequest, creatorID string) (*InviteResponse, error) {
	s.logger.Info("Creating invite", "exam_id", req.ExamID, "email", req.Email, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	creator, err := s.repo.User().GetByID(ctx, nil, creatorID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	exam, err := s.repo.Exam().GetByIDWithDetails(ctx, nil, req.ExamID)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound)
	}

	if !creator.Role.IsCoordinator() && exam.CreatedBy != creatorID {
		return nil, NewPermissionError(creatorID, req.ExamID, "invite", "create", "not owner or insufficient permissions")
	}
	if exam.Status != models.ExamStatusApproved {
		return nil, ErrExamNotApproved
	}

	token, err := generateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("token generation failed: %w", err)
	}

	ttl := s.inviteTTL
	if req.TTLHours != nil {
		ttl = time.Duration(*req.TTLHours) * time.Hour
	}

	invitedRole := models.RoleTeacher
	if req.InvitedRole != nil {
		invitedRole = models.NormalizeRole(*req.InvitedRole)
	}

	invite := &models.ExamInvite{
		ExamID:      exam.ID,
		Token:       token,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		InvitedRole: invitedRole,
		Status:      models.InviteStatusPending,
		ExpiresAt:   time.Now().Add(ttl),
		CreatedBy:   creatorID,
	}

	if err := s.repo.Invite().Create(ctx, nil, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	responseURL := s.responseURL(token)

	venue := ""
	if exam.Venue != nil {
		venue = *exam.Venue
	}
	if err := s.mailer.SendInvite(ctx, email.InviteEmail{
		To:          invite.Email,
		ExamTitle:   exam.Title,
		ExamDate:    exam.ExamDate,
		Venue:       venue,
		ResponseURL: responseURL,
		ExpiresAt:   invite.ExpiresAt,
		InviterName: creator.FullName,
		CollegeName: exam.College.Name,
	}); err != nil {
		s.logger.Warn("Failed to send invite email", "invite_id", invite.ID, "error", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventInviteCreated, map[string]interface{}{
		"invite_id": invite.ID,
		"exam_id":   exam.ID,
		"email":     invite.Email,
	}))

	return &InviteResponse{ExamInvite: invite, ResponseURL: responseURL}, nil
}

func (s *inviteService) GetByID(ctx context.Context, id uint, userID string) (*InviteResponse, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	invite, err := s.repo.Invite().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrInviteNotFound)
	}

	if !user.Role.IsCoordinator() && invite.CreatedBy != userID && invite.Exam.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "invite", "read", "not owner or insufficient permissions")
	}

	return &InviteResponse{ExamInvite: invite}, nil
}

func (s *inviteService) List(ctx context.Context, filters repositories.InviteFilters, userID string) (*InviteListResponse, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	// Non-coordinators only see invitations they issued.
	if !user.Role.IsCoordinator() {
		filters.CreatedBy = &userID
	}

	invites, total, err := s.repo.Invite().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}

	responses := make([]*InviteResponse, 0, len(invites))
	for _, invite := range invites {
		responses = append(responses, &InviteResponse{ExamInvite: invite})
	}

	return &InviteListResponse{
		Invites: responses,
		Total:   total,
		Page:    pageFromOffset(filters.Offset, filters.Limit),
		Size:    filters.Limit,
	}, nil
}

// ===== TOKEN-KEYED PUBLIC OPERATIONS =====

// GetByToken returns the recipient-facing view. It always reads the database
// directly: a stale cached status here could tell a responder the invite is
// still open after it closed.
func (s *inviteService) GetByToken(ctx context.Context, token string) (*InvitePublicView, error) {
	invite, err := s.repo.Invite().GetByToken(ctx, nil, token)
	if err != nil {
		return nil, mapNotFound(err, ErrInviteNotFound)
	}

	return &InvitePublicView{
		ExamTitle:   invite.Exam.Title,
		Subject:     invite.Exam.Subject,
		ExamDate:    invite.Exam.ExamDate.Format(time.RFC3339),
		Venue:       invite.Exam.Venue,
		CollegeName: invite.Exam.College.Name,
		Status:      invite.Status,
		Expired:     invite.IsExpired(time.Now()),
	}, nil
}

// Respond applies the accept/decline decision. The pending -> terminal
// transition happens through a single guarded UPDATE: when two responses
// race, exactly one wins and the loser observes the stored outcome.
func (s *inviteService) Respond(ctx context.Context, token string, req *RespondInviteRequest) (*RespondInviteResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	invite, err := s.repo.Invite().GetByToken(ctx, nil, token)
	if err != nil {
		return nil, mapNotFound(err, ErrInviteNotFound)
	}

	if invite.Status != models.InviteStatusPending {
		return &RespondInviteResult{Invite: invite, AlreadyResponded: true}, nil
	}
	if invite.IsExpired(time.Now()) {
		return nil, ErrInviteExpired
	}

	now := time.Now()
	won, err := s.repo.Invite().MarkResponded(ctx, nil, invite.ID, req.Response, req.Comment, req.Availability, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record response: %w", err)
	}
	if !won {
		// Lost the race: reload and report the outcome that actually stuck.
		current, err := s.repo.Invite().GetByID(ctx, nil, invite.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload invite: %w", err)
		}
		return &RespondInviteResult{Invite: current, AlreadyResponded: true}, nil
	}

	invite.Status = req.Response
	invite.Comment = req.Comment
	invite.Availability = req.Availability
	invite.RespondedAt = &now

	s.logger.Info("Invite responded", "invite_id", invite.ID, "status", invite.Status)

	s.publishEvent(ctx, events.NewEvent(events.EventInviteResponded, events.InviteRespondedEvent{
		InviteID: invite.ID,
		ExamID:   invite.ExamID,
		Status:   string(invite.Status),
		Email:    invite.Email,
	}))

	verb := "accepted"
	if invite.Status == models.InviteStatusDeclined {
		verb = "declined"
	}
	s.notify(ctx, invite.Exam.CreatedBy, models.NotificationInviteResponded,
		fmt.Sprintf("Invitation %s", verb),
		fmt.Sprintf("%s has %s the examiner invitation for %q", invite.Email, verb, invite.Exam.Title),
		map[string]interface{}{"invite_id": invite.ID, "exam_id": invite.ExamID, "status": invite.Status},
	)

	return &RespondInviteResult{Invite: invite}, nil
}

// ===== INTERNAL HELPERS =====

// generateInviteToken returns 32 random bytes hex-encoded, which fits the 64
// character column and is the invite's sole credential.
func generateInviteToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *inviteService) responseURL(token string) string {
	return fmt.Sprintf("%s/invites/%s", s.baseURL, token)
}

func (s *inviteService) publishEvent(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "type", event.Type, "error", err)
	}
}

func (s *inviteService) notify(ctx context.Context, userID string, ntype models.NotificationType, title, message string, data map[string]interface{}) {
	if err := s.notifier.Send(ctx, userID, ntype, title, message, data); err != nil {
		s.logger.Warn("Failed to send notification", "user_id", userID, "type", ntype, "error", err)
	}
}
