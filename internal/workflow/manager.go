package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"copydesk/internal/agents"
	"copydesk/internal/config"
	"copydesk/internal/logging"
	"copydesk/internal/loop"
	"copydesk/internal/queue"
	"copydesk/internal/services"
	"copydesk/internal/workspace"
)

// AgentFactory builds the creator/reviewer pair for one workspace. The
// default factory reads the agent configuration plus per-episode overrides.
type AgentFactory func(cfg *config.Config, workspaceDir string) (loop.Creator, loop.Reviewer, error)

// Manager runs queued drafting jobs across a worker pool. Each worker claims
// one job at a time, heartbeats it while a Runner drives the loop, and
// records the terminal outcome back on the queue.
type Manager struct {
	cfg     *config.Config
	queue   *queue.Store
	logger  *slog.Logger
	factory AgentFactory

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds a manager over an open queue store.
func NewManager(cfg *config.Config, queueStore *queue.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		queue:   queueStore,
		logger:  logger.With(logging.String(logging.FieldComponent, "manager")),
		factory: agents.New,
	}
}

// SetAgentFactory replaces the agent factory. Tests use this to run jobs
// against scripted agents.
func (m *Manager) SetAgentFactory(factory AgentFactory) {
	m.factory = factory
}

// Start launches the worker pool and the stale-job reclaimer. It returns
// immediately; Stop or context cancellation winds the pool down.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return services.Wrap(services.ErrValidation, "manager", "start", "already running", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	workers := m.cfg.Loop.Workers
	if workers < 1 {
		workers = 1
	}
	m.logger.Info("starting workers", logging.Int("workers", workers))
	for i := 1; i <= workers; i++ {
		m.wg.Add(1)
		go m.worker(runCtx, i)
	}

	m.wg.Add(1)
	go m.reclaimLoop(runCtx)
	return nil
}

// Stop cancels the pool and waits for in-flight jobs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	m.logger.Info("workers stopped")
}

// Wait blocks until the pool has wound down.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) worker(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int(logging.FieldWorker, id))
	poll := time.Duration(m.cfg.Loop.QueuePollInterval) * time.Second

	for {
		if ctx.Err() != nil {
			return
		}
		job, err := m.queue.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("claim failed", logging.Error(err))
			if !sleep(ctx, poll) {
				return
			}
			continue
		}
		if job == nil {
			if !sleep(ctx, poll) {
				return
			}
			continue
		}
		m.runJob(ctx, logger, job)
	}
}

func (m *Manager) runJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	logger = logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEpisode, job.EpisodeID),
		logging.String(logging.FieldAsset, job.AssetID),
	)
	logger.Info("job claimed")

	stopHeartbeat := m.startHeartbeat(ctx, job.ID, logger)
	defer stopHeartbeat()

	creator, reviewer, err := m.factory(m.cfg, job.WorkspacePath)
	if err != nil {
		m.fail(ctx, logger, job, fmt.Errorf("build agents: %w", err))
		return
	}

	store := workspace.NewStore(job.WorkspacePath)
	runner := NewRunner(store, m.logger, m.cfg.Loop.MaxIterations)
	result, err := runner.Run(ctx, job.AssetID, creator, reviewer)
	if err != nil {
		m.fail(ctx, logger, job, err)
		return
	}

	status := queue.StatusNeedsHuman
	if result.Outcome == loop.OutcomeConverged {
		status = queue.StatusConverged
	}
	if err := m.queue.MarkOutcome(ctx, job.ID, status, result.Iterations, result.Reason); err != nil {
		logger.Error("record outcome failed", logging.Error(err))
		return
	}
	logger.Info("job finished",
		logging.String(logging.FieldOutcome, string(result.Outcome)),
		logging.Int(logging.FieldIteration, result.Iterations))
}

func (m *Manager) fail(ctx context.Context, logger *slog.Logger, job *queue.Job, cause error) {
	logger.Error("job failed", logging.Error(cause), logging.Bool("fatal", services.IsFatal(cause)))
	if err := m.queue.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		logger.Error("record failure failed", logging.Error(err))
	}
}

// startHeartbeat keeps the claimed job visibly alive so the reclaimer never
// hands it to another worker. The returned func stops the ticker.
func (m *Manager) startHeartbeat(ctx context.Context, jobID int64, logger *slog.Logger) func() {
	interval := time.Duration(m.cfg.Loop.HeartbeatInterval) * time.Second
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.queue.UpdateHeartbeat(ctx, jobID); err != nil && ctx.Err() == nil {
					logger.Warn("heartbeat failed", logging.Error(err))
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

// reclaimLoop periodically returns jobs with stale heartbeats to pending so
// a crashed worker never strands a claim.
func (m *Manager) reclaimLoop(ctx context.Context) {
	defer m.wg.Done()
	timeout := time.Duration(m.cfg.Loop.HeartbeatTimeout) * time.Second
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := m.queue.ReclaimStale(ctx, time.Now().UTC().Add(-timeout))
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Error("reclaim failed", logging.Error(err))
				}
				continue
			}
			if reclaimed > 0 {
				m.logger.Warn("reclaimed stale jobs", logging.Int64("count", reclaimed))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
