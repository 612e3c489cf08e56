package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/realtime"
	"github.com/classtrack/classtrack-api/pkg/validation"
)

const defaultChatHistory = 100

type chatStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error)
	Create(ctx context.Context, message *models.ChatMessage) error
}

type profileFinder interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

// ChatServiceParams groups constructor dependencies.
type ChatServiceParams struct {
	Messages      chatStore
	Profiles      profileFinder
	Notifier      realtime.Notifier
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
	HistoryLimit  int
	RatePerMinute int
	Burst         int
}

// ChatService runs the lobby shared by class representatives of all branches.
type ChatService struct {
	messages  chatStore
	profiles  profileFinder
	notifier  realtime.Notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	limit     int
	limiters  *senderLimiters
	now       func() time.Time
}

// NewChatService constructs a ChatService. A non-positive RatePerMinute disables rate limiting.
func NewChatService(params ChatServiceParams) *ChatService {
	validate := params.Validator
	if validate == nil {
		validate = validation.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := params.HistoryLimit
	if limit <= 0 {
		limit = defaultChatHistory
	}
	var limiters *senderLimiters
	if params.RatePerMinute > 0 {
		limiters = newSenderLimiters(rate.Every(time.Minute/time.Duration(params.RatePerMinute)), params.Burst)
	}
	return &ChatService{
		messages:  params.Messages,
		profiles:  params.Profiles,
		notifier:  notifierOrNop(params.Notifier),
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		limit:     limit,
		limiters:  limiters,
		now:       time.Now,
	}
}

// List returns the most recent messages, oldest first.
func (s *ChatService) List(ctx context.Context, actor *models.JWTClaims) ([]models.ChatMessage, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListRecent(ctx, s.limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load messages")
	}
	return messages, nil
}

// Post appends a message stamped with the sender's profile branch.
func (s *ChatService) Post(ctx context.Context, actor *models.JWTClaims, req dto.PostChatMessageRequest) (*models.ChatMessage, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordChatMessage("rejected")
		return nil, validationError(err)
	}
	if !s.limiters.allow(actor.UserID, s.now()) {
		s.metrics.RecordChatMessage("rate_limited")
		return nil, appErrors.Clone(appErrors.ErrRateLimited, "you are sending messages too quickly")
	}

	profile, err := s.profiles.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	senderID := profile.ID
	senderName := profile.Name
	message := &models.ChatMessage{
		SenderID:     &senderID,
		SenderBranch: profile.Branch,
		SenderName:   &senderName,
		Message:      req.Message,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		s.metrics.RecordChatMessage("failure")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	s.metrics.RecordChatMessage("success")
	s.notifier.Publish(realtime.Event{Collection: realtime.CollectionChat, Op: realtime.OpInsert, At: message.CreatedAt})
	return message, nil
}

type senderLimiters struct {
	mu    sync.Mutex
	every rate.Limit
	burst int
	items map[string]*rate.Limiter
}

func newSenderLimiters(every rate.Limit, burst int) *senderLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &senderLimiters{every: every, burst: burst, items: make(map[string]*rate.Limiter)}
}

func (l *senderLimiters) allow(sender string, at time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.items[sender]
	if !ok {
		limiter = rate.NewLimiter(l.every, l.burst)
		l.items[sender] = limiter
	}
	l.mu.Unlock()
	return limiter.AllowN(at, 1)
}
