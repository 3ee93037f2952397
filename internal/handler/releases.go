package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/haatos/simple-release/internal/service"
	"github.com/haatos/simple-release/internal/store"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

func SetupReleaseRoutes(g *echo.Group, releaseService ReleaseServicer, log *zap.Logger) {
	h := NewReleaseHandler(releaseService, log)
	g.POST("/projects/:project_id/releases", h.PostProjectRelease)
	g.GET("/projects/:project_id/releases", h.GetProjectReleases)
	g.GET("/releases/:release_id", h.GetRelease)
	g.GET("/releases/:release_id/events", h.GetReleaseEvents)
}

type ReleaseWriter interface {
	CreateRelease(ctx context.Context, projectID int64, tag string) (*store.Release, error)
}

type ReleaseReader interface {
	GetReleaseByID(ctx context.Context, id int64) (*store.Release, error)
	ListProjectReleases(ctx context.Context, projectID, limit int64) ([]*store.Release, error)
	SubscribeRelease(releaseID int64, uid string) (<-chan service.ReleaseEvent, func())
}

type ReleaseServicer interface {
	ReleaseWriter
	ReleaseReader
}

type ReleaseHandler struct {
	releaseService ReleaseServicer
	log            *zap.Logger
}

func NewReleaseHandler(releaseService ReleaseServicer, log *zap.Logger) *ReleaseHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReleaseHandler{releaseService: releaseService, log: log}
}

// PostProjectRelease queues a manual release of the tag in the request body.
func (h *ReleaseHandler) PostProjectRelease(c echo.Context) error {
	rp := new(ReleaseParams)
	if err := c.Bind(rp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid release data")
	}

	r, err := h.releaseService.CreateRelease(c.Request().Context(), rp.ProjectID, rp.Tag)
	if err != nil {
		return serviceError(err, "project not found", "unable to create release")
	}
	return c.JSON(http.StatusAccepted, r)
}

func (h *ReleaseHandler) GetProjectReleases(c echo.Context) error {
	lp := new(ListReleasesParams)
	if err := c.Bind(lp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid project id or limit")
	}

	releases, err := h.releaseService.ListProjectReleases(
		c.Request().Context(), lp.ProjectID, lp.Limit,
	)
	if err != nil {
		return serviceError(err, "project not found", "unable to list releases")
	}
	if releases == nil {
		releases = []*store.Release{}
	}
	return c.JSON(http.StatusOK, releases)
}

func (h *ReleaseHandler) GetRelease(c echo.Context) error {
	rp := new(ReleaseParams)
	if err := c.Bind(rp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid release id")
	}

	r, err := h.releaseService.GetReleaseByID(c.Request().Context(), rp.ReleaseID)
	if err != nil {
		return serviceError(err, "release not found", "unable to read release")
	}
	return c.JSON(http.StatusOK, r)
}

// GetReleaseEvents streams the progress of a release. The stored state is sent
// first and the stream ends after the final status.
func (h *ReleaseHandler) GetReleaseEvents(c echo.Context) error {
	rp := new(ReleaseParams)
	if err := c.Bind(rp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid release id")
	}

	// subscribe before reading so that no transition is missed
	events, cancel := h.releaseService.SubscribeRelease(rp.ReleaseID, uuid.NewString())
	defer cancel()

	ctx := c.Request().Context()
	r, err := h.releaseService.GetReleaseByID(ctx, rp.ReleaseID)
	if err != nil {
		return serviceError(err, "release not found", "unable to read release")
	}

	w := startEventStream(c)
	if done, err := h.sendReleaseEvent(w, service.ReleaseSnapshot(r)); err != nil || done {
		return err
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := writeEvent(w, &Event{Comment: []byte("ping")}); err != nil {
				return nil
			}
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if done, err := h.sendReleaseEvent(w, e); err != nil || done {
				return err
			}
		}
	}
}

func (h *ReleaseHandler) sendReleaseEvent(w *echo.Response, e service.ReleaseEvent) (bool, error) {
	ev, err := newJSONEvent(int64(e.Step), "release", e)
	if err != nil {
		h.log.Error("err marshaling release event", zap.Error(err))
		return true, nil
	}
	if err := writeEvent(w, ev); err != nil {
		h.log.Debug("release event stream closed", zap.Error(err))
		return true, nil
	}
	return e.Status.Finished(), nil
}
