package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/haatos/simple-release/internal/release"
	"github.com/haatos/simple-release/internal/security"
	"github.com/haatos/simple-release/internal/store"
	"github.com/haatos/simple-release/internal/util"
	"go.uber.org/zap"
)

const (
	DefaultReleaseListLimit int64 = 50
	interruptedMessage            = "interrupted by server restart"
)

type ProjectWriter interface {
	CreateProject(context.Context, string, string, string, *int64) (*store.Project, error)
	UpdateProject(context.Context, int64, string, string, *int64) error
	DeleteProject(context.Context, int64) error
}

type ProjectReader interface {
	ReadProjectByID(context.Context, int64) (*store.Project, error)
	ReadProjectByRepository(context.Context, string) (*store.Project, error)
	ListProjects(context.Context) ([]*store.Project, error)
}

type ProjectStore interface {
	ProjectWriter
	ProjectReader
}

type ReleaseWriter interface {
	CreateRelease(context.Context, int64, string) (*store.Release, error)
	UpdateReleaseStartedOn(context.Context, int64, time.Time) error
	UpdateReleaseProgress(context.Context, int64, int, string) error
	UpdateReleaseEndedOn(context.Context, *store.Release) error
	FailUnfinishedReleases(context.Context, string, time.Time) (int64, error)
	DeleteReleasesBefore(context.Context, time.Time) (int64, error)
}

type ReleaseReader interface {
	ReadReleaseByID(context.Context, int64) (*store.Release, error)
	ListProjectReleases(context.Context, int64, int64) ([]*store.Release, error)
}

type ReleaseStore interface {
	ReleaseWriter
	ReleaseReader
}

// Pipeline is the release state machine run for every dequeued release.
type Pipeline interface {
	Run(ctx context.Context, t release.Trigger, reporter release.Reporter) (*release.RevisionRecord, error)
}

type Notifier interface {
	ForRelease(repository, tag string) release.Reporter
}

// ReleaseEvent is pushed to subscribers of a release on every step transition.
type ReleaseEvent struct {
	ReleaseID  int64               `json:"release_id"`
	Status     store.ReleaseStatus `json:"status"`
	Step       int                 `json:"step"`
	StepName   string              `json:"step_name"`
	StepStatus string              `json:"step_status"`
	Message    string              `json:"message"`
}

type ReleaseService struct {
	projectStore    ProjectStore
	releaseStore    ReleaseStore
	credentialStore CredentialReader
	encrypter       security.Encrypter
	pipeline        Pipeline
	notifier        Notifier
	metrics         *Metrics
	log             *zap.Logger

	appsDir   string
	queueSize int64
	events    *SSEClientMap[ReleaseEvent]
	now       func() time.Time

	mu     sync.Mutex
	queues map[int64]*ReleaseQueue
}

type ReleaseServiceConfig struct {
	AppsDir   string
	QueueSize int64
	Notifier  Notifier
	Metrics   *Metrics
}

func NewReleaseService(
	projectStore ProjectStore,
	releaseStore ReleaseStore,
	credentialStore CredentialReader,
	encrypter security.Encrypter,
	pipeline Pipeline,
	config ReleaseServiceConfig,
	log *zap.Logger,
) *ReleaseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReleaseService{
		projectStore:    projectStore,
		releaseStore:    releaseStore,
		credentialStore: credentialStore,
		encrypter:       encrypter,
		pipeline:        pipeline,
		notifier:        config.Notifier,
		metrics:         config.Metrics,
		log:             log,
		appsDir:         config.AppsDir,
		queueSize:       config.QueueSize,
		events:          NewSSEClientMap[ReleaseEvent](),
		now:             time.Now,
		queues:          make(map[int64]*ReleaseQueue),
	}
}

// InitializeReleaseQueues fails releases left unfinished by a previous process
// and starts one queue per project.
func (s *ReleaseService) InitializeReleaseQueues(ctx context.Context) error {
	n, err := s.releaseStore.FailUnfinishedReleases(ctx, interruptedMessage, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Warn("marked interrupted releases as failed", zap.Int64("count", n))
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		s.queueFor(p.ProjectID)
	}
	return nil
}

func (s *ReleaseService) queueFor(projectID int64) *ReleaseQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	rq, ok := s.queues[projectID]
	if !ok {
		rq = NewReleaseQueue(projectID, s.processRelease, s.queueSize)
		s.queues[projectID] = rq
		go rq.Run()
	}
	return rq
}

func (s *ReleaseService) GetReleaseQueue(projectID int64) (*ReleaseQueue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rq, ok := s.queues[projectID]
	return rq, ok
}

func (s *ReleaseService) RemoveReleaseQueue(projectID int64) {
	s.mu.Lock()
	rq, ok := s.queues[projectID]
	delete(s.queues, projectID)
	s.mu.Unlock()
	if ok {
		rq.Shutdown()
	}
}

// ShutdownAll stops every queue and waits for in-flight releases to finish.
func (s *ReleaseService) ShutdownAll() {
	s.mu.Lock()
	queues := make([]*ReleaseQueue, 0, len(s.queues))
	for id, rq := range s.queues {
		queues = append(queues, rq)
		delete(s.queues, id)
	}
	s.mu.Unlock()

	for _, rq := range queues {
		rq.Shutdown()
	}
	for _, rq := range queues {
		rq.Wait()
	}
}

func (s *ReleaseService) CreateProject(
	ctx context.Context,
	repository, workingPath, manifestFile string,
	credentialID *int64,
) (*store.Project, error) {
	repository, manifestFile, err := s.validateProject(repository, workingPath, manifestFile)
	if err != nil {
		return nil, err
	}
	p, err := s.projectStore.CreateProject(ctx, repository, workingPath, manifestFile, credentialID)
	if err != nil {
		return nil, err
	}
	s.queueFor(p.ProjectID)
	return p, nil
}

func (s *ReleaseService) GetProjectByID(ctx context.Context, id int64) (*store.Project, error) {
	return s.projectStore.ReadProjectByID(ctx, id)
}

func (s *ReleaseService) ListProjects(ctx context.Context) ([]*store.Project, error) {
	projects, err := s.projectStore.ListProjects(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return projects, nil
}

func (s *ReleaseService) UpdateProject(
	ctx context.Context,
	id int64,
	workingPath, manifestFile string,
	credentialID *int64,
) error {
	p, err := s.projectStore.ReadProjectByID(ctx, id)
	if err != nil {
		return err
	}
	_, manifestFile, err = s.validateProject(p.Repository, workingPath, manifestFile)
	if err != nil {
		return err
	}
	return s.projectStore.UpdateProject(ctx, id, workingPath, manifestFile, credentialID)
}

func (s *ReleaseService) DeleteProject(ctx context.Context, id int64) error {
	if err := s.projectStore.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.RemoveReleaseQueue(id)
	return nil
}

func (s *ReleaseService) validateProject(
	repository, workingPath, manifestFile string,
) (string, string, error) {
	repository = strings.Trim(strings.TrimSpace(repository), "/")
	if repository == "" {
		return "", "", InvalidProjectError{Reason: "repository is required"}
	}
	cfg, err := release.ReleaseConfig{
		WorkingPath:  workingPath,
		ManifestFile: manifestFile,
	}.Normalize(s.appsDir)
	if err != nil {
		return "", "", InvalidProjectError{Reason: err.Error()}
	}
	return repository, cfg.ManifestFile, nil
}

// CreateRelease records a release of tag for the project and queues it.
func (s *ReleaseService) CreateRelease(
	ctx context.Context,
	projectID int64,
	tag string,
) (*store.Release, error) {
	tag, err := ValidateTag(tag)
	if err != nil {
		return nil, err
	}
	p, err := s.projectStore.ReadProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.enqueue(ctx, p, tag)
}

// TriggerRelease queues tag for the project deploying repository.
func (s *ReleaseService) TriggerRelease(
	ctx context.Context,
	repository, tag string,
) (*store.Release, error) {
	tag, err := ValidateTag(tag)
	if err != nil {
		return nil, err
	}
	p, err := s.projectStore.ReadProjectByRepository(ctx, repository)
	if err != nil {
		return nil, err
	}
	return s.enqueue(ctx, p, tag)
}

func (s *ReleaseService) enqueue(
	ctx context.Context,
	p *store.Project,
	tag string,
) (*store.Release, error) {
	r, err := s.releaseStore.CreateRelease(ctx, p.ProjectID, tag)
	if err != nil {
		return nil, err
	}
	if err := s.queueFor(p.ProjectID).Enqueue(r); err != nil {
		r.Status = store.StatusFailed
		r.Message = err.Error()
		r.EndedOn = util.AsPtr(s.now().UTC())
		if sqlErr := s.releaseStore.UpdateReleaseEndedOn(ctx, r); sqlErr != nil {
			s.log.Error("err recording rejected release", zap.Error(sqlErr))
		}
		return r, err
	}
	s.metrics.Enqueued()
	s.log.Info("release queued",
		zap.String("repository", p.Repository),
		zap.String("tag", tag),
		zap.Int64("release_id", r.ReleaseID),
	)
	return r, nil
}

func (s *ReleaseService) GetReleaseByID(ctx context.Context, id int64) (*store.Release, error) {
	return s.releaseStore.ReadReleaseByID(ctx, id)
}

func (s *ReleaseService) ListProjectReleases(
	ctx context.Context,
	projectID, limit int64,
) ([]*store.Release, error) {
	if limit <= 0 || limit > DefaultReleaseListLimit {
		limit = DefaultReleaseListLimit
	}
	if _, err := s.projectStore.ReadProjectByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.releaseStore.ListProjectReleases(ctx, projectID, limit)
}

func (s *ReleaseService) PruneReleases(ctx context.Context, before time.Time) (int64, error) {
	return s.releaseStore.DeleteReleasesBefore(ctx, before)
}

// SubscribeRelease streams events of a release until cancel is called.
func (s *ReleaseService) SubscribeRelease(releaseID int64, uid string) (<-chan ReleaseEvent, func()) {
	ch := s.events.AddClient(releaseID, uid)
	return ch, func() { s.events.RemoveClient(releaseID, uid) }
}

// ValidateTag accepts semantic versions with an optional v prefix and strips a
// refs/tags/ prefix.
func ValidateTag(tag string) (string, error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "refs/tags/")
	if _, err := semver.NewVersion(tag); err != nil {
		return "", ErrInvalidTag
	}
	return tag, nil
}

func (s *ReleaseService) processRelease(ctx context.Context, r *store.Release) {
	s.metrics.Dequeued()
	start := s.now()
	log := s.log.With(zap.Int64("release_id", r.ReleaseID), zap.String("tag", r.Tag))

	p, trigger, err := s.prepare(ctx, r)
	if err != nil {
		log.Error("err preparing release", zap.Error(err))
		s.finish(ctx, r, store.StatusFailed, err.Error())
		return
	}
	log = log.With(zap.String("repository", p.Repository))

	r.Status = store.StatusRunning
	r.StartedOn = util.AsPtr(start.UTC())
	if err := s.releaseStore.UpdateReleaseStartedOn(ctx, r.ReleaseID, start); err != nil {
		log.Error("err updating release started on", zap.Error(err))
	}

	reporters := release.MultiReporter{
		&historyReporter{service: s, release: r},
		s.metrics.StepReporter(),
	}
	if s.notifier != nil {
		reporters = append(reporters, s.notifier.ForRelease(p.Repository, r.Tag))
	}

	rec, runErr := s.pipeline.Run(ctx, trigger, reporters)
	if rec != nil {
		r.PreviousRevision = rec.PreviousRevision
		r.PreviousTag = rec.PreviousVersionTag
	}

	status := store.StatusDone
	var rbErr *release.RollbackError
	switch {
	case errors.As(runErr, &rbErr):
		status = store.StatusRollbackFailed
		log.Error("release failed and could not be rolled back", zap.Error(runErr))
	case runErr != nil:
		status = store.StatusFailed
		log.Warn("release failed", zap.Error(runErr))
	default:
		log.Info("release done")
	}
	s.finish(ctx, r, status, release.Message(runErr))
	s.metrics.ObserveRelease(p.Repository, status, s.now().Sub(start))
}

func (s *ReleaseService) prepare(
	ctx context.Context,
	r *store.Release,
) (*store.Project, release.Trigger, error) {
	p, err := s.projectStore.ReadProjectByID(ctx, r.ReleaseProjectID)
	if err != nil {
		return nil, release.Trigger{}, err
	}
	cfg, err := release.ReleaseConfig{
		WorkingPath:  p.WorkingPath,
		ManifestFile: p.ManifestFile,
	}.Normalize(s.appsDir)
	if err != nil {
		return nil, release.Trigger{}, err
	}
	auth, err := s.deployKey(ctx, p)
	if err != nil {
		return nil, release.Trigger{}, err
	}
	return p, release.Trigger{
		Repository: p.Repository,
		Tag:        r.Tag,
		Config:     cfg,
		Auth:       auth,
	}, nil
}

func (s *ReleaseService) deployKey(ctx context.Context, p *store.Project) (*release.Auth, error) {
	if p.ProjectCredentialID == nil {
		return nil, nil
	}
	c, err := s.credentialStore.ReadCredentialByID(ctx, *p.ProjectCredentialID)
	if err != nil {
		return nil, err
	}
	key, err := s.encrypter.DecryptAES(c.SSHPrivateKeyHash)
	if err != nil {
		return nil, err
	}
	return &release.Auth{Username: c.Username, SSHPrivateKey: key}, nil
}

func (s *ReleaseService) finish(
	ctx context.Context,
	r *store.Release,
	status store.ReleaseStatus,
	message string,
) {
	r.Status = status
	r.Message = message
	r.EndedOn = util.AsPtr(s.now().UTC())
	if err := s.releaseStore.UpdateReleaseEndedOn(ctx, r); err != nil {
		s.log.Error("err updating release ended on",
			zap.Int64("release_id", r.ReleaseID),
			zap.Error(err),
		)
	}
	s.events.CloseClients(r.ReleaseID, ReleaseSnapshot(r))
}

// ReleaseSnapshot describes the stored state of r as an event.
func ReleaseSnapshot(r *store.Release) ReleaseEvent {
	status := "pending"
	if r.Status.Finished() {
		status = finalStepStatus(r.Status)
	}
	return ReleaseEvent{
		ReleaseID:  r.ReleaseID,
		Status:     r.Status,
		Step:       r.Step,
		StepName:   release.Step(r.Step).String(),
		StepStatus: status,
		Message:    r.Message,
	}
}

func finalStepStatus(status store.ReleaseStatus) string {
	if status == store.StatusDone {
		return string(release.StatusDone)
	}
	return string(release.StatusFailed)
}

// historyReporter mirrors step transitions into the release row and to
// subscribers.
type historyReporter struct {
	service *ReleaseService
	release *store.Release
}

func (h *historyReporter) Report(
	ctx context.Context,
	step release.Step,
	status release.Status,
	message string,
) {
	h.release.Step = int(step)
	h.release.Message = message
	if err := h.service.releaseStore.UpdateReleaseProgress(
		ctx, h.release.ReleaseID, int(step), message,
	); err != nil {
		h.service.log.Warn("err updating release progress",
			zap.Int64("release_id", h.release.ReleaseID),
			zap.Error(err),
		)
	}
	// the terminal event is sent by finish once the row is final
	if status != release.StatusPending {
		return
	}
	h.service.events.SendToClients(h.release.ReleaseID, ReleaseEvent{
		ReleaseID:  h.release.ReleaseID,
		Status:     h.release.Status,
		Step:       int(step),
		StepName:   step.String(),
		StepStatus: stepStatus(status),
		Message:    message,
	})
}
