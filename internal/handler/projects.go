package handler

import (
	"context"
	"net/http"

	"github.com/haatos/simple-release/internal/store"
	"github.com/labstack/echo/v4"
)

func SetupProjectRoutes(g *echo.Group, projectService ProjectServicer) {
	h := NewProjectHandler(projectService)
	projectsGroup := g.Group("/projects")
	projectsGroup.GET("", h.GetProjects)
	projectsGroup.POST("", h.PostProject)
	projectsGroup.GET("/:project_id", h.GetProject)
	projectsGroup.PATCH("/:project_id", h.PatchProject)
	projectsGroup.DELETE("/:project_id", h.DeleteProject)
}

type ProjectWriter interface {
	CreateProject(
		ctx context.Context,
		repository, workingPath, manifestFile string,
		credentialID *int64,
	) (*store.Project, error)
	UpdateProject(
		ctx context.Context,
		id int64,
		workingPath, manifestFile string,
		credentialID *int64,
	) error
	DeleteProject(ctx context.Context, id int64) error
}

type ProjectReader interface {
	GetProjectByID(ctx context.Context, id int64) (*store.Project, error)
	ListProjects(ctx context.Context) ([]*store.Project, error)
}

type ProjectServicer interface {
	ProjectWriter
	ProjectReader
}

type ProjectHandler struct {
	projectService ProjectServicer
}

func NewProjectHandler(projectService ProjectServicer) *ProjectHandler {
	return &ProjectHandler{projectService}
}

func (h *ProjectHandler) GetProjects(c echo.Context) error {
	projects, err := h.projectService.ListProjects(c.Request().Context())
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to list projects")
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	return c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) PostProject(c echo.Context) error {
	pp := new(ProjectParams)
	if err := c.Bind(pp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid project data")
	}

	p, err := h.projectService.CreateProject(
		c.Request().Context(),
		pp.Repository, pp.WorkingPath, pp.ManifestFile, pp.CredentialID,
	)
	if err != nil {
		return serviceError(err, "credential not found", "unable to create project")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProjectHandler) GetProject(c echo.Context) error {
	pp := new(ProjectParams)
	if err := c.Bind(pp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid project id")
	}

	p, err := h.projectService.GetProjectByID(c.Request().Context(), pp.ProjectID)
	if err != nil {
		return serviceError(err, "project not found", "unable to read project")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) PatchProject(c echo.Context) error {
	pp := new(ProjectParams)
	if err := c.Bind(pp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid project data")
	}

	ctx := c.Request().Context()
	if err := h.projectService.UpdateProject(
		ctx, pp.ProjectID, pp.WorkingPath, pp.ManifestFile, pp.CredentialID,
	); err != nil {
		return serviceError(err, "project not found", "unable to update project")
	}

	p, err := h.projectService.GetProjectByID(ctx, pp.ProjectID)
	if err != nil {
		return serviceError(err, "project not found", "unable to read project")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	pp := new(ProjectParams)
	if err := c.Bind(pp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid project id")
	}

	if err := h.projectService.DeleteProject(c.Request().Context(), pp.ProjectID); err != nil {
		return serviceError(err, "project not found", "unable to delete project")
	}
	return c.NoContent(http.StatusNoContent)
}
