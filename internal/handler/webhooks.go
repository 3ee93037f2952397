package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/Jeffail/gabs"
	"github.com/haatos/simple-release/internal"
	"github.com/haatos/simple-release/internal/security"
	"github.com/haatos/simple-release/internal/store"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxWebhookBody = 5 << 20

func SetupWebhookRoutes(e *echo.Echo, triggerer ReleaseTriggerer, secret string, log *zap.Logger) {
	h := NewWebhookHandler(triggerer, secret, log)
	e.POST("/webhooks/github", h.PostGitHubWebhook)
}

type ReleaseTriggerer interface {
	TriggerRelease(ctx context.Context, repository, tag string) (*store.Release, error)
}

type WebhookHandler struct {
	triggerer ReleaseTriggerer
	secret    string
	log       *zap.Logger
}

func NewWebhookHandler(triggerer ReleaseTriggerer, secret string, log *zap.Logger) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{triggerer: triggerer, secret: secret, log: log}
}

type webhookResponse struct {
	Message string         `json:"message"`
	Release *store.Release `json:"release,omitempty"`
}

// PostGitHubWebhook queues a release for every published GitHub release of a
// known repository. Other events are acknowledged and ignored.
func (h *WebhookHandler) PostGitHubWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return newError(err, http.StatusBadRequest, "unable to read request body")
	}

	signature := c.Request().Header.Get(internal.GitHubSignatureHeader)
	if !security.VerifySignature([]byte(h.secret), body, signature) {
		return newError(nil, http.StatusUnauthorized, "invalid signature")
	}

	event := c.Request().Header.Get(internal.GitHubEventHeader)
	log := h.log.With(
		zap.String("event", event),
		zap.String("delivery", c.Request().Header.Get(internal.GitHubDeliveryHeader)),
	)
	if event != "release" {
		log.Debug("ignoring webhook event")
		return c.JSON(http.StatusAccepted, webhookResponse{Message: "event ignored"})
	}

	payload, err := gabs.ParseJSON(body)
	if err != nil {
		return newError(err, http.StatusBadRequest, "invalid webhook payload")
	}
	action, _ := payload.Path("action").Data().(string)
	if action != "published" {
		log.Debug("ignoring release action", zap.String("action", action))
		return c.JSON(http.StatusAccepted, webhookResponse{Message: "action ignored"})
	}
	repository, _ := payload.Path("repository.full_name").Data().(string)
	tag, _ := payload.Path("release.tag_name").Data().(string)
	if repository == "" || tag == "" {
		return newError(nil, http.StatusBadRequest, "payload is missing repository or tag")
	}

	r, err := h.triggerer.TriggerRelease(c.Request().Context(), repository, tag)
	if err != nil {
		return serviceError(err, "repository is not configured", "unable to queue release")
	}
	log.Info("release queued from webhook",
		zap.String("repository", repository),
		zap.String("tag", tag),
		zap.Int64("release_id", r.ReleaseID),
	)
	return c.JSON(http.StatusAccepted, webhookResponse{Message: "release queued", Release: r})
}
