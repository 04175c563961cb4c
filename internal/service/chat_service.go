package service

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/observability"
	"github.com/sandwich-learn/sandwich-api/internal/session"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

// chatCursor is the stored onboarding conversation position. The
// transitions themselves are backend-owned; this service only keeps the
// cursor so a reconnecting client resumes mid-conversation.
type chatCursor struct {
	State string `json:"state"`
}

const chatStateWelcome = "welcome"

// ChatConnectionOptions wraps metadata extracted during the websocket
// upgrade.
type ChatConnectionOptions struct {
	SessionID     string
	CorrelationID string
	Context       context.Context
}

// ChatService relays the onboarding conversation through the
// backend-owned chatbot state machine until a syllabus is produced.
type ChatService interface {
	Step(ctx context.Context, sessionID, message string) (dto.ChatStepResponse, error)
	Reset(ctx context.Context, sessionID string) error
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
}

type chatService struct {
	store     session.Store
	tutor     TutorClient
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewChatService creates the onboarding chat relay.
func NewChatService(store session.Store, tutor TutorClient, logger zerolog.Logger) ChatService {
	return &chatService{
		store:     store,
		tutor:     tutor,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "chat_service").Logger(),
	}
}

// Step sends one learner turn for the stored cursor and persists the
// returned state. An empty message is valid for the opening turn.
func (s *chatService) Step(ctx context.Context, sessionID, message string) (dto.ChatStepResponse, error) {
	cursor := chatCursor{State: chatStateWelcome}
	if _, err := s.store.Get(ctx, sessionID, session.KeyChatState, &cursor); err != nil {
		return dto.ChatStepResponse{}, err
	}
	if cursor.State == "" {
		cursor.State = chatStateWelcome
	}

	input := strings.TrimSpace(s.sanitizer.Sanitize(message))

	reply, err := s.tutor.ChatbotStep(ctx, upstream.ChatbotStepRequest{
		State:     cursor.State,
		UserInput: input,
	})
	if err != nil {
		return dto.ChatStepResponse{}, err
	}

	if reply.State != "" {
		if err := s.store.Set(ctx, sessionID, session.KeyChatState, chatCursor{State: reply.State}); err != nil {
			return dto.ChatStepResponse{}, err
		}
	}

	if reply.CourseReady {
		s.logger.Info().Str("session_id", sessionID).Msg("onboarding produced a syllabus")
	}

	return dto.ChatStepResponse{
		State:         reply.State,
		Bot:           reply.Bot,
		Summary:       reply.Summary,
		Syllabus:      reply.Syllabus,
		CourseReady:   reply.CourseReady,
		CourseContext: reply.CourseContext,
		Error:         reply.Error,
	}, nil
}

// Reset drops the stored cursor so the next step starts from welcome.
func (s *chatService) Reset(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID, session.KeyChatState)
}

// ServeConnection runs the conversation over an open websocket. Each
// inbound frame is one learner turn; each outbound frame mirrors the
// HTTP step reply.
func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	defer conn.Close()

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	observability.ChatConnections().Inc()
	logger := s.logger.With().Str("session_id", opts.SessionID).Str("correlation_id", opts.CorrelationID).Logger()

	for {
		var frame dto.ChatStepRequest
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("chat websocket closed unexpectedly")
			}
			return
		}

		reply, err := s.Step(ctx, opts.SessionID, frame.Message)
		if err != nil {
			logger.Error().Err(err).Msg("chat step failed")
			if writeErr := conn.WriteJSON(dto.ChatStepResponse{Error: "tutor backend unavailable, please retry"}); writeErr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(reply); err != nil {
			logger.Warn().Err(err).Msg("failed to write chat reply")
			return
		}
	}
}
