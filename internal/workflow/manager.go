package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipperd/internal/config"
	"clipperd/internal/logging"
	"clipperd/internal/progress"
	"clipperd/internal/queue"
	"clipperd/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Download   stage.Handler
	Transcribe stage.Handler
	Analyze    stage.Handler
	Render     stage.Handler
}

type pipelineStage struct {
	name          string
	handler       stage.Handler
	claimStatuses []queue.Status
	activeStatus  queue.Status
	doneStatus    queue.Status
}

type laneKind string

const (
	laneAuto   laneKind = "auto"
	laneRender laneKind = "render"
)

type laneState struct {
	kind          laneKind
	name          string
	stages        []pipelineStage
	statusOrder   []queue.Status
	stageByStatus map[queue.Status]pipelineStage
	logger        *slog.Logger
}

func (l *laneState) finalize() {
	l.stageByStatus = make(map[queue.Status]pipelineStage)
	l.statusOrder = l.statusOrder[:0]
	for _, stg := range l.stages {
		for _, status := range stg.claimStatuses {
			l.stageByStatus[status] = stg
			l.statusOrder = append(l.statusOrder, status)
		}
	}
}

func (l *laneState) stageForStatus(status queue.Status) (pipelineStage, bool) {
	stg, ok := l.stageByStatus[status]
	return stg, ok
}

// Manager coordinates job processing across the pipeline lanes.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	workerCount  int

	heartbeat *HeartbeatMonitor
	tracker   *progress.Tracker

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
	active  map[string]struct{}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	workers := cfg.Workflow.WorkerCount
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		workerCount:  workers,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		tracker: progress.NewTracker(),
		lanes:   make(map[laneKind]*laneState),
		active:  make(map[string]struct{}),
	}
}

// ConfigureStages registers the concrete stage handlers the workflow runs.
// The download stage also claims jobs found mid-download after a restart so
// interrupted work resumes at its persisted stage.
func (m *Manager) ConfigureStages(set StageSet) {
	auto := &laneState{kind: laneAuto, name: "auto"}
	render := &laneState{kind: laneRender, name: "render"}

	if set.Download != nil {
		auto.stages = append(auto.stages, pipelineStage{
			name:          progress.StageDownload,
			handler:       set.Download,
			claimStatuses: []queue.Status{queue.StatusPending, queue.StatusDownloading},
			activeStatus:  queue.StatusDownloading,
			doneStatus:    queue.StatusTranscribing,
		})
	}
	if set.Transcribe != nil {
		auto.stages = append(auto.stages, pipelineStage{
			name:          progress.StageTranscribe,
			handler:       set.Transcribe,
			claimStatuses: []queue.Status{queue.StatusTranscribing},
			activeStatus:  queue.StatusTranscribing,
			doneStatus:    queue.StatusAnalyzing,
		})
	}
	if set.Analyze != nil {
		auto.stages = append(auto.stages, pipelineStage{
			name:          progress.StageAnalyze,
			handler:       set.Analyze,
			claimStatuses: []queue.Status{queue.StatusAnalyzing},
			activeStatus:  queue.StatusAnalyzing,
			doneStatus:    queue.StatusChaptersReady,
		})
	}
	if set.Render != nil {
		render.stages = append(render.stages, pipelineStage{
			name:          progress.StageRender,
			handler:       set.Render,
			claimStatuses: []queue.Status{queue.StatusProcessing},
			activeStatus:  queue.StatusProcessing,
			doneStatus:    queue.StatusCompleted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)
	if len(auto.stages) > 0 {
		auto.finalize()
		lanes[auto.kind] = auto
		order = append(order, auto.kind)
	}
	if len(render.stages) > 0 {
		render.finalize()
		lanes[render.kind] = render
		order = append(order, render.kind)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || len(lane.statusOrder) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(lanes) * m.workerCount)
	m.mu.Unlock()

	for _, lane := range lanes {
		for i := 0; i < m.workerCount; i++ {
			go m.runWorker(runCtx, lane)
		}
	}
	return nil
}

// Stop terminates background processing and waits for in-flight stages.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Tracker exposes the per-stage duration tracker for ETA reporting.
func (m *Manager) Tracker() *progress.Tracker {
	return m.tracker
}

func (m *Manager) runWorker(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
			logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			)
		}

		job, err := m.claimNext(ctx, lane)
		if err != nil {
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		err = m.processJob(ctx, lane, logger, job)
		m.release(job.ID)
		if errors.Is(err, context.Canceled) {
			return
		}
	}
}

// claimNext fetches the oldest claimable job and marks it active so no
// other worker picks it up.
func (m *Manager) claimNext(ctx context.Context, lane *laneState) (*queue.Job, error) {
	m.mu.Lock()
	excluding := make([]string, 0, len(m.active))
	for id := range m.active {
		excluding = append(excluding, id)
	}
	m.mu.Unlock()

	job, err := m.store.NextForStatuses(ctx, excluding, lane.statusOrder...)
	if err != nil || job == nil {
		return nil, err
	}

	m.mu.Lock()
	if _, taken := m.active[job.ID]; taken {
		m.mu.Unlock()
		return nil, nil
	}
	m.active[job.ID] = struct{}{}
	m.mu.Unlock()
	return job, nil
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check job database access"),
	)
	retry := time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second
	select {
	case <-ctx.Done():
	case <-time.After(retry):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, "workflow-"+lane.name+"-runner"),
		logging.String(logging.FieldLane, lane.name),
	)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
