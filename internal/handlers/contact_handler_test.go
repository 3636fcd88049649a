package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mhkarimi/portfolio-backend/internal/model"
	"github.com/mhkarimi/portfolio-backend/internal/repository"
	"github.com/mhkarimi/portfolio-backend/internal/sanitize"
	"github.com/mhkarimi/portfolio-backend/internal/services"
	xhttp "github.com/mhkarimi/portfolio-backend/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Submit(ctx context.Context, req model.ContactRequest, clientIP, userAgent string) (*services.SubmitResult, error) {
	args := m.Called(ctx, req, clientIP, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SubmitResult), args.Error(1)
}

func (m *MockContactService) List(ctx context.Context) ([]*model.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockContactService) Get(ctx context.Context, id int64) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockContactService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContactService) Resend(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockContactService) VisitorInfo(ip, userAgent string) (*model.IPInfo, *model.DeviceInfo) {
	args := m.Called(ip, userAgent)
	return args.Get(0).(*model.IPInfo), args.Get(1).(*model.DeviceInfo)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestContactHandler_SubmitContact(t *testing.T) {
	t.Run("successful submission", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		reqBody, _ := json.Marshal(model.ContactRequest{
			Name:    "John Doe",
			Email:   "john@example.com",
			Message: "Hello, I would like to discuss a project.",
		})

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(r model.ContactRequest) bool {
			return r.Name == "John Doe" && r.Email == "john@example.com"
		}), mock.Anything, mock.Anything).Return(&services.SubmitResult{
			Message:          &model.Message{ID: 1},
			TelegramNotified: true,
		}, nil)

		ctx := setupTestContext("POST", "/api/contact", reqBody)
		handler.SubmitContact(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response submitResponse
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.True(t, response.Success)
		assert.True(t, response.TelegramNotified)

		svc.AssertExpectations(t)
	})

	t.Run("form encoded submission", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(r model.ContactRequest) bool {
			return r.Name == "Jane" && r.Message == "hi there, nice site"
		}), mock.Anything, mock.Anything).Return(&services.SubmitResult{
			Message: &model.Message{ID: 2},
		}, nil)

		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.SetMethod("POST")
		ctx.Request.SetRequestURI("/api/contact")
		ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
		ctx.Request.SetBodyString("name=Jane&email=jane%40example.com&message=hi+there%2C+nice+site")
		handler.SubmitContact(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("spam answered like success", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		reqBody, _ := json.Marshal(model.ContactRequest{Name: "x", Email: "x@y.com", Message: "spammy"})
		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&services.SubmitResult{Spam: true}, nil)

		ctx := setupTestContext("POST", "/api/contact", reqBody)
		handler.SubmitContact(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response submitResponse
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.True(t, response.Success)
		assert.True(t, response.TelegramNotified)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		ctx := setupTestContext("POST", "/api/contact", []byte("not json"))
		handler.SubmitContact(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validation error", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		reqBody, _ := json.Marshal(model.ContactRequest{Name: "John"})
		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, sanitize.ErrEmailRequired)

		ctx := setupTestContext("POST", "/api/contact", reqBody)
		handler.SubmitContact(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())

		var response map[string]any
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, false, response["success"])
		assert.NotEmpty(t, response["error"])
	})

	t.Run("storage error hides detail", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		reqBody, _ := json.Marshal(model.ContactRequest{Name: "John", Email: "j@e.com", Message: "valid message here"})
		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("open /data: permission denied"))

		ctx := setupTestContext("POST", "/api/contact", reqBody)
		handler.SubmitContact(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())

		var response map[string]any
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, "An error occurred", response["error"])
		assert.NotContains(t, string(ctx.Response.Body()), "permission denied")
	})
}

func TestContactHandler_ListMessages(t *testing.T) {
	svc := new(MockContactService)
	handler := NewContactHandler(svc, "")

	expected := []*model.Message{
		{ID: 2, Name: "Second"},
		{ID: 1, Name: "First"},
	}
	svc.On("List", mock.Anything).Return(expected, nil)

	ctx := setupTestContext("GET", "/api/messages", nil)
	handler.ListMessages(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())

	var response listMessagesResponse
	err := json.Unmarshal(ctx.Response.Body(), &response)
	require.NoError(t, err)
	assert.True(t, response.Success)
	assert.Equal(t, 2, response.Count)
	assert.Len(t, response.Messages, 2)

	svc.AssertExpectations(t)
}

func TestContactHandler_GetMessage(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		svc.On("Get", mock.Anything, int64(42)).Return(&model.Message{ID: 42, Name: "John"}, nil)

		ctx := setupTestContext("GET", "/api/messages/42", nil)
		ctx.SetUserValue("id", "42")
		handler.GetMessage(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		svc.On("Get", mock.Anything, int64(999)).Return(nil, repository.ErrNotFound)

		ctx := setupTestContext("GET", "/api/messages/999", nil)
		ctx.SetUserValue("id", "999")
		handler.GetMessage(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		ctx := setupTestContext("GET", "/api/messages/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetMessage(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestContactHandler_DeleteMessage(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		svc.On("Delete", mock.Anything, int64(7)).Return(nil)

		ctx := setupTestContext("DELETE", "/api/messages/7", nil)
		ctx.SetUserValue("id", "7")
		handler.DeleteMessage(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		svc.On("Delete", mock.Anything, int64(7)).Return(repository.ErrNotFound)

		ctx := setupTestContext("DELETE", "/api/messages/7", nil)
		ctx.SetUserValue("id", "7")
		handler.DeleteMessage(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})
}

func TestContactHandler_ResendTelegram(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		svc.On("Resend", mock.Anything, int64(3)).Return(true, nil)

		ctx := setupTestContext("POST", "/api/messages/3/resend-telegram", nil)
		ctx.SetUserValue("id", "3")
		handler.ResendTelegram(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response map[string]any
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, true, response["success"])
		assert.Equal(t, "Notification resent", response["message"])
		assert.Equal(t, true, response["telegramSent"])

		svc.AssertExpectations(t)
	})

	t.Run("delivery failed", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		svc.On("Resend", mock.Anything, int64(3)).Return(false, nil)

		ctx := setupTestContext("POST", "/api/messages/3/resend-telegram", nil)
		ctx.SetUserValue("id", "3")
		handler.ResendTelegram(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response map[string]any
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, true, response["success"])
		assert.Equal(t, "Notification delivery failed", response["message"])
		assert.Equal(t, false, response["telegramSent"])
	})
}

func TestContactHandler_GetIPInfo(t *testing.T) {
	svc := new(MockContactService)
	handler := NewContactHandler(svc, "")

	svc.On("VisitorInfo", mock.Anything, mock.Anything).
		Return(model.UnknownIPInfo("203.0.113.7"), &model.DeviceInfo{Browser: "Chrome"})

	ctx := setupTestContext("GET", "/api/ip-info", nil)
	handler.GetIPInfo(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())

	var response map[string]any
	err := json.Unmarshal(ctx.Response.Body(), &response)
	require.NoError(t, err)
	assert.Equal(t, true, response["success"])
	assert.NotNil(t, response["ip"])
	assert.NotNil(t, response["device"])

	svc.AssertExpectations(t)
}

func TestContactHandler_AdminGuard(t *testing.T) {
	t.Run("missing token rejected", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "s3cret")

		ctx := setupTestContext("GET", "/api/messages", nil)
		handler.adminOnly(handler.ListMessages)(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "List", mock.Anything)
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "s3cret")

		ctx := setupTestContext("GET", "/api/messages", nil)
		ctx.Request.Header.Set("X-Admin-Token", "guess")
		handler.adminOnly(handler.ListMessages)(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
	})

	t.Run("header token accepted", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "s3cret")

		svc.On("List", mock.Anything).Return([]*model.Message{}, nil)

		ctx := setupTestContext("GET", "/api/messages", nil)
		ctx.Request.Header.Set("X-Admin-Token", "s3cret")
		handler.adminOnly(handler.ListMessages)(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("bearer token accepted", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "s3cret")

		svc.On("List", mock.Anything).Return([]*model.Message{}, nil)

		ctx := setupTestContext("GET", "/api/messages", nil)
		ctx.Request.Header.Set("Authorization", "Bearer s3cret")
		handler.adminOnly(handler.ListMessages)(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("no configured token leaves endpoints open", func(t *testing.T) {
		svc := new(MockContactService)
		handler := NewContactHandler(svc, "")

		svc.On("List", mock.Anything).Return([]*model.Message{}, nil)

		ctx := setupTestContext("GET", "/api/messages", nil)
		handler.adminOnly(handler.ListMessages)(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})
}

func TestHealthHandler_GetHealth(t *testing.T) {
	handler := NewHealthHandler()

	ctx := setupTestContext("GET", "/api/health", nil)
	handler.GetHealth(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())

	var response map[string]any
	err := json.Unmarshal(ctx.Response.Body(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["timestamp"])
}
