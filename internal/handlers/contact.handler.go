package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/mhkarimi/portfolio-backend/internal/model"
	"github.com/mhkarimi/portfolio-backend/internal/repository"
	"github.com/mhkarimi/portfolio-backend/internal/sanitize"
	"github.com/mhkarimi/portfolio-backend/internal/services"
	xhttp "github.com/mhkarimi/portfolio-backend/pkg/http"
	"github.com/mhkarimi/portfolio-backend/pkg/logger"
	"github.com/pkg/errors"
)

type ContactService interface {
	Submit(ctx context.Context, req model.ContactRequest, clientIP, userAgent string) (*services.SubmitResult, error)
	List(ctx context.Context) ([]*model.Message, error)
	Get(ctx context.Context, id int64) (*model.Message, error)
	Delete(ctx context.Context, id int64) error
	Resend(ctx context.Context, id int64) (bool, error)
	VisitorInfo(ip, userAgent string) (*model.IPInfo, *model.DeviceInfo)
}

type ContactHandler struct {
	svc        ContactService
	adminToken string
}

func NewContactHandler(svc ContactService, adminToken string) *ContactHandler {
	if adminToken == "" {
		logger.Warn("ADMIN_TOKEN is not set, admin endpoints are open")
	}
	return &ContactHandler{
		svc:        svc,
		adminToken: adminToken,
	}
}

func RegisterContactRoutes(e *router.Group, h *ContactHandler) {
	e.POST("/contact", h.SubmitContact)
	e.GET("/ip-info", h.GetIPInfo)
	e.GET("/messages", h.adminOnly(h.ListMessages))
	e.GET("/messages/{id}", h.adminOnly(h.GetMessage))
	e.DELETE("/messages/{id}", h.adminOnly(h.DeleteMessage))
	e.POST("/messages/{id}/resend-telegram", h.adminOnly(h.ResendTelegram))
}

type submitResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	TelegramNotified bool   `json:"telegramNotified"`
}

type listMessagesResponse struct {
	Success  bool             `json:"success"`
	Count    int              `json:"count"`
	Messages []*model.Message `json:"messages"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *ContactHandler) SubmitContact(ctx *xhttp.RequestCtx) {
	req, err := readContactRequest(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.svc.Submit(ctx, req, xhttp.ClientIP(ctx), string(ctx.Request.Header.UserAgent()))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	// a spam submission gets the same answer as a stored one so the
	// sender cannot probe the filter
	writeJSON(ctx, xhttp.StatusCreated, submitResponse{
		Success:          true,
		Message:          "Message sent successfully!",
		TelegramNotified: result.Spam || result.TelegramNotified,
	})
}

func (h *ContactHandler) ListMessages(ctx *xhttp.RequestCtx) {
	messages, err := h.svc.List(ctx)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listMessagesResponse{
		Success:  true,
		Count:    len(messages),
		Messages: messages,
	})
}

func (h *ContactHandler) GetMessage(ctx *xhttp.RequestCtx) {
	id, err := paramID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "Invalid message id")
		return
	}
	m, err := h.svc.Get(ctx, id)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"success": true, "message": m})
}

func (h *ContactHandler) DeleteMessage(ctx *xhttp.RequestCtx) {
	id, err := paramID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "Invalid message id")
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		h.handleError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"success": true, "message": "Message deleted"})
}

func (h *ContactHandler) ResendTelegram(ctx *xhttp.RequestCtx) {
	id, err := paramID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "Invalid message id")
		return
	}
	sent, err := h.svc.Resend(ctx, id)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	msg := "Notification resent"
	if !sent {
		msg = "Notification delivery failed"
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"success": true, "message": msg, "telegramSent": sent})
}

func (h *ContactHandler) GetIPInfo(ctx *xhttp.RequestCtx) {
	info, dev := h.svc.VisitorInfo(xhttp.ClientIP(ctx), string(ctx.Request.Header.UserAgent()))
	writeJSON(ctx, xhttp.StatusOK, map[string]any{
		"success": true,
		"ip":      info,
		"device":  dev,
	})
}

/* -------------------------------- Helpers ------------------------------------ */

// adminOnly rejects requests without the configured admin token. An empty
// configured token disables the check; that is warned about at startup.
func (h *ContactHandler) adminOnly(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		if h.adminToken != "" {
			token := string(ctx.Request.Header.Peek("X-Admin-Token"))
			if token == "" {
				auth := string(ctx.Request.Header.Peek("Authorization"))
				token = strings.TrimPrefix(auth, "Bearer ")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
				writeError(ctx, xhttp.StatusUnauthorized, "Unauthorized")
				return
			}
		}
		next(ctx)
	}
}

func (h *ContactHandler) handleError(ctx *xhttp.RequestCtx, err error) {
	var verr *sanitize.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(ctx, xhttp.StatusBadRequest, verr.Reason)
	case errors.Is(err, repository.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, "Message not found")
	default:
		logger.Error("request failed", "path", string(ctx.Path()), "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "An error occurred")
	}
}

// readContactRequest accepts either a JSON body or a classic form post,
// whichever the front-end sent.
func readContactRequest(ctx *xhttp.RequestCtx) (model.ContactRequest, error) {
	var req model.ContactRequest
	contentType := string(ctx.Request.Header.ContentType())
	if strings.Contains(contentType, "application/json") {
		err := json.Unmarshal(ctx.PostBody(), &req)
		return req, err
	}
	args := ctx.PostArgs()
	req.Name = string(args.Peek("name"))
	req.Email = string(args.Peek("email"))
	req.Subject = string(args.Peek("subject"))
	req.Message = string(args.Peek("message"))
	return req, nil
}

func paramID(ctx *xhttp.RequestCtx) (int64, error) {
	v, _ := ctx.UserValue("id").(string)
	return strconv.ParseInt(v, 10, 64)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]any{"success": false, "error": msg})
}
