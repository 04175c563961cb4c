package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

func newChatApp(svc *mockChatService) *fiber.App {
	h := NewChatHandler(svc, testLogger())
	return newTestApp(func(router fiber.Router) {
		h.Register(router.Group("/chat"))
	})
}

func TestChatStep(t *testing.T) {
	svc := &mockChatService{
		step: func(sessionID, message string) (dto.ChatStepResponse, error) {
			assert.Equal(t, testSessionID, sessionID)
			assert.Equal(t, "I want to learn spanish", message)
			return dto.ChatStepResponse{State: "collect_duration", Bot: "How many weeks?"}, nil
		},
	}
	app := newChatApp(svc)

	payload, _ := json.Marshal(dto.ChatStepRequest{Message: "I want to learn spanish"})
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/chat/step", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decodeResponse(t, resp)
	var body dto.ChatStepResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "collect_duration", body.State)
	assert.Equal(t, "How many weeks?", body.Bot)
}

func TestChatStepUpstreamFailure(t *testing.T) {
	svc := &mockChatService{
		step: func(string, string) (dto.ChatStepResponse, error) {
			return dto.ChatStepResponse{}, &upstream.Error{StatusCode: 500, Message: "conversation engine down"}
		},
	}
	app := newChatApp(svc)

	payload, _ := json.Marshal(dto.ChatStepRequest{Message: "hello"})
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/chat/step", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}

func TestChatReset(t *testing.T) {
	called := false
	svc := &mockChatService{
		reset: func(sessionID string) error {
			called = true
			assert.Equal(t, testSessionID, sessionID)
			return nil
		},
	}
	app := newChatApp(svc)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/chat/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, called)
}

func TestChatWsRequiresUpgrade(t *testing.T) {
	app := newChatApp(&mockChatService{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/chat/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
