// Package orchestrator implements the single-writer coordination state
// machine: Follower -> Candidate -> Leader{Preparing,Extracting,Finalizing}
// -> Releasing -> Follower.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	batchworker "github.com/acme/batchworker"
	"github.com/acme/batchworker/lifecycle"
	"github.com/acme/batchworker/logging"
	"github.com/acme/batchworker/metrics"
	"github.com/acme/batchworker/outputwriter"
	"github.com/acme/batchworker/pagereader"
	"github.com/acme/batchworker/publisher"
	"github.com/acme/batchworker/retry"
	"github.com/acme/batchworker/store"
	"github.com/acme/batchworker/translator"
	"github.com/acme/batchworker/trigger"
)

// ErrMisconfigured indicates a configuration error that cannot be retried,
// such as a file naming a translator id that was never registered.
var ErrMisconfigured = errors.New("orchestrator: misconfigured")

// errLeadershipLost signals that extract observed the lease held by another
// instance mid-run. It is not reported to callers: lead treats it as a
// normal early exit that skips finalization, since the pages already
// written remain durable for whoever takes over next.
var errLeadershipLost = errors.New("orchestrator: leadership lost")

// state names the orchestrator's position in its state machine, used for
// the OrchestratorState metric and logging.
type state string

const (
	stateFollower    state = "follower"
	stateCandidate   state = "candidate"
	statePreparing   state = "preparing"
	stateExtracting  state = "extracting"
	stateFinalizing  state = "finalizing"
	stateReleasing   state = "releasing"
)

// Config configures an Orchestrator. Fields left at their zero value take
// the documented default.
type Config struct {
	WorkerID   string
	InstanceID string

	Files          []batchworker.FileConfig
	OutputRootPath string

	LeaseStore     store.LeaseStore
	ProgressStore  store.ProgressStore
	PageReader     pagereader.PageReader
	Translators    *translator.Registry
	EventPublisher publisher.EventPublisher
	TriggerGuard   trigger.Guard

	PageSize  int
	EventType string

	LeaseHeartbeatInterval time.Duration
	LeaseTTL               time.Duration
	TakeoverPollingInterval time.Duration

	RetryConfig retry.Config

	Logger    logging.Logger
	Collector *metrics.Collector
}

// Option customizes a Config during New.
type Option func(*Config)

// WithLeaseStore sets the LeaseStore collaborator.
func WithLeaseStore(s store.LeaseStore) Option { return func(c *Config) { c.LeaseStore = s } }

// WithProgressStore sets the ProgressStore collaborator.
func WithProgressStore(s store.ProgressStore) Option {
	return func(c *Config) { c.ProgressStore = s }
}

// WithPageReader sets the PageReader collaborator.
func WithPageReader(r pagereader.PageReader) Option { return func(c *Config) { c.PageReader = r } }

// WithTranslators sets the translator registry.
func WithTranslators(r *translator.Registry) Option {
	return func(c *Config) { c.Translators = r }
}

// WithEventPublisher sets the EventPublisher collaborator.
func WithEventPublisher(p publisher.EventPublisher) Option {
	return func(c *Config) { c.EventPublisher = p }
}

// WithTriggerGuard sets the TriggerGuard collaborator.
func WithTriggerGuard(g trigger.Guard) Option { return func(c *Config) { c.TriggerGuard = g } }

// WithFiles sets the ordered list of output files to maintain.
func WithFiles(files []batchworker.FileConfig) Option {
	return func(c *Config) { c.Files = files }
}

// WithLogger sets the Logger used for observability.
func WithLogger(l logging.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithCollector sets the metrics Collector used for observability.
func WithCollector(m *metrics.Collector) Option { return func(c *Config) { c.Collector = m } }

// WithRetryConfig overrides the exponential-backoff policy the orchestrator
// applies to event publication during finalization. Page reads are retried
// by the PageReader under its own policy.
func WithRetryConfig(cfg retry.Config) Option { return func(c *Config) { c.RetryConfig = cfg } }

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 10000
	}
	if c.EventType == "" {
		c.EventType = "FileCompleted"
	}
	if c.LeaseHeartbeatInterval <= 0 {
		c.LeaseHeartbeatInterval = 30 * time.Second
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 2 * time.Minute
	}
	if c.TakeoverPollingInterval <= 0 {
		c.TakeoverPollingInterval = 15 * time.Second
	}
	if c.RetryConfig.MaxRetries == 0 && c.RetryConfig.InitialBackoff == 0 {
		c.RetryConfig = retry.DefaultConfig()
	}
}

func (c *Config) validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("%w: WorkerID is required: set Config.WorkerID", ErrMisconfigured)
	}
	if c.InstanceID == "" {
		return fmt.Errorf("%w: InstanceID is required", ErrMisconfigured)
	}
	if c.LeaseStore == nil {
		return fmt.Errorf("%w: LeaseStore is required: use WithLeaseStore option", ErrMisconfigured)
	}
	if c.ProgressStore == nil {
		return fmt.Errorf("%w: ProgressStore is required: use WithProgressStore option", ErrMisconfigured)
	}
	if c.PageReader == nil {
		return fmt.Errorf("%w: PageReader is required: use WithPageReader option", ErrMisconfigured)
	}
	if c.Translators == nil {
		return fmt.Errorf("%w: Translators is required: use WithTranslators option", ErrMisconfigured)
	}
	if c.EventPublisher == nil {
		return fmt.Errorf("%w: EventPublisher is required: use WithEventPublisher option", ErrMisconfigured)
	}
	if c.TriggerGuard == nil {
		return fmt.Errorf("%w: TriggerGuard is required: use WithTriggerGuard option", ErrMisconfigured)
	}
	if len(c.Files) == 0 {
		return fmt.Errorf("%w: at least one file is required: use WithFiles option", ErrMisconfigured)
	}
	for _, f := range c.Files {
		if _, err := c.Translators.Lookup(f.TranslatorID); err != nil {
			return fmt.Errorf("%w: file %q: %w", ErrMisconfigured, f.FileID, err)
		}
	}
	return nil
}

// Orchestrator drives one replica of a worker through lease acquisition,
// extraction, and finalization.
type Orchestrator struct {
	config Config
}

// New constructs an Orchestrator, applying defaults and validating required
// collaborators are present.
func New(opts ...Option) (*Orchestrator, error) {
	config := Config{}
	for _, opt := range opts {
		opt(&config)
	}
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{config: config}, nil
}

func (o *Orchestrator) log() logging.Logger { return o.config.Logger }

func (o *Orchestrator) setState(s state) {
	if o.config.Collector != nil {
		o.config.Collector.SetOrchestratorState(string(s))
	}
}

// Run blocks until ctx is cancelled, cycling through Follower/Candidate/
// Leader/Releasing. It returns nil when ctx is cancelled and any held lease
// has been released, or an error for unrecoverable conditions.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		o.setState(stateFollower)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(o.config.TakeoverPollingInterval):
		}

		if err := o.TryOnce(ctx); err != nil {
			if errors.Is(err, ErrMisconfigured) {
				return err
			}
			if o.log() != nil {
				o.log().Error(ctx, "leadership run failed", "workerId", o.config.WorkerID, "error", err)
			}
		}
	}
}

// TryOnce makes a single attempt to acquire the lease and, if successful,
// runs one full leadership term before returning. It is the unit the
// Follower/Candidate polling loop in Run repeats, and is also suitable for
// an external scheduler (e.g. a cron trigger) that prefers to drive attempts
// itself rather than rely on Run's internal polling.
func (o *Orchestrator) TryOnce(ctx context.Context) error {
	acquired, err := o.config.LeaseStore.TryAcquire(ctx, o.config.WorkerID, o.config.InstanceID, o.config.LeaseTTL)
	if err != nil {
		if o.log() != nil {
			o.log().Warn(ctx, "lease acquisition failed", "workerId", o.config.WorkerID, "error", err)
		}
		return nil
	}
	if !acquired {
		return nil
	}
	return o.lead(ctx)
}

// lead runs one full leadership term: Candidate -> Preparing -> Extracting
// -> Finalizing -> Releasing. The lease is released on every exit path.
func (o *Orchestrator) lead(ctx context.Context) (runErr error) {
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("recovered panic during leadership run: %v", r)
			if o.log() != nil {
				o.log().Error(ctx, "recovered panic during leadership run", "workerId", o.config.WorkerID, "panic", r)
			}
		}
	}()

	o.setState(stateCandidate)
	if o.config.Collector != nil {
		o.config.Collector.IncLeaseAcquisitions()
		o.config.Collector.SetIsLeader(true)
	}

	leaderCtx, cancelLeader := context.WithCancel(ctx)
	defer cancelLeader()

	lost := make(chan bool, 1)
	hb := lifecycle.New(lifecycle.Config{
		Store:             o.config.LeaseStore,
		HeartbeatInterval: o.config.LeaseHeartbeatInterval,
		TTL:               o.config.LeaseTTL,
		Logger:            o.config.Logger,
	}, o.config.WorkerID, o.config.InstanceID)

	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go func() {
		defer hbWG.Done()
		hb.StartHeartbeat(leaderCtx, lost)
	}()

	go func() {
		select {
		case <-lost:
			if o.config.Collector != nil {
				o.config.Collector.IncLeaseLost()
			}
			cancelLeader()
		case <-leaderCtx.Done():
		}
	}()

	defer func() {
		hb.Stop(5 * time.Second)
		hbWG.Wait()
		if o.config.Collector != nil {
			o.config.Collector.SetIsLeader(false)
		}
		o.setState(stateReleasing)
		if err := o.config.LeaseStore.Release(ctx, o.config.WorkerID, o.config.InstanceID); err != nil && o.log() != nil {
			o.log().Warn(ctx, "lease release failed", "workerId", o.config.WorkerID, "error", err)
		}
		o.setState(stateFollower)
	}()

	o.setState(statePreparing)
	should, err := o.config.TriggerGuard.ShouldProcess(leaderCtx, o.config.WorkerID)
	if err != nil {
		return fmt.Errorf("checking trigger guard: %w", err)
	}
	if !should {
		// A run started today is skipped only once every configured file is
		// Completed; otherwise this leader resumes it (same-day takeover).
		outstanding := false
		for _, f := range o.config.Files {
			p, err := o.config.ProgressStore.Get(leaderCtx, f.FileID)
			if err == nil && p.Status != batchworker.FileStatusCompleted {
				outstanding = true
				break
			}
		}
		if !outstanding {
			return nil
		}
	}

	for _, f := range o.config.Files {
		if _, err := o.config.ProgressStore.Get(leaderCtx, f.FileID); errors.Is(err, store.ErrFileNotFound) {
			if err := o.config.ProgressStore.SetStart(leaderCtx, f.FileID, o.config.WorkerID); err != nil {
				return fmt.Errorf("starting file %s: %w", f.FileID, err)
			}
		} else if err != nil {
			return fmt.Errorf("checking file %s: %w", f.FileID, err)
		}
	}

	o.setState(stateExtracting)
	if err := o.extract(leaderCtx); err != nil {
		if errors.Is(err, errLeadershipLost) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}

	if err := leaderCtx.Err(); err != nil {
		return nil
	}

	o.setState(stateFinalizing)
	if err := o.finalize(leaderCtx); err != nil {
		return err
	}

	return o.config.TriggerGuard.MarkProcessed(ctx, o.config.WorkerID)
}

func (o *Orchestrator) extract(ctx context.Context) error {
	resumePage, err := o.config.ProgressStore.GetMinOutstandingPage(ctx, o.config.WorkerID)
	if err != nil {
		return fmt.Errorf("computing resume page: %w", err)
	}

	totalRows, err := o.config.PageReader.GetTotalRowCount(ctx)
	if err != nil {
		return fmt.Errorf("reading total row count: %w", err)
	}
	totalPages := pagereader.TotalPages(totalRows, o.config.PageSize)

	for p := resumePage; int64(p) < totalPages; p++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lease, err := o.config.LeaseStore.Get(ctx, o.config.WorkerID)
		if err != nil || lease.InstanceID != o.config.InstanceID {
			return errLeadershipLost
		}

		rows, err := o.config.PageReader.ReadPage(ctx, p)
		if err != nil {
			return fmt.Errorf("reading page %d: %w", p, err)
		}
		if len(rows) == 0 {
			return nil
		}

		cumulativeRows := int64(p*o.config.PageSize) + int64(len(rows))

		if err := o.writePageToFiles(ctx, p, cumulativeRows, rows); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) writePageToFiles(ctx context.Context, p int, cumulativeRows int64, rows []batchworker.Row) error {
	var wg sync.WaitGroup
	errs := make([]error, len(o.config.Files))

	for i, f := range o.config.Files {
		wg.Add(1)
		go func(i int, f batchworker.FileConfig) {
			defer wg.Done()
			errs[i] = o.writePageToFile(ctx, f, p, cumulativeRows, rows)
		}(i, f)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("file %s: %w", o.config.Files[i].FileID, err)
		}
	}
	return nil
}

func (o *Orchestrator) writePageToFile(ctx context.Context, f batchworker.FileConfig, p int, cumulativeRows int64, rows []batchworker.Row) error {
	progress, err := o.config.ProgressStore.Get(ctx, f.FileID)
	if err != nil && !errors.Is(err, store.ErrFileNotFound) {
		return err
	}
	if progress.Status == batchworker.FileStatusCompleted && progress.LastPage >= p {
		return nil
	}

	tr, err := o.config.Translators.Lookup(f.TranslatorID)
	if err != nil {
		return err
	}

	lines, err := translator.TranslateBatch(tr, rows)
	if err != nil {
		return fmt.Errorf("translating page %d: %w", p, err)
	}

	writer := outputwriter.New(o.resolveFilePath(f))
	if err := writer.AppendPage(p, cumulativeRows, lines); err != nil {
		return fmt.Errorf("appending page %d: %w", p, err)
	}

	if err := o.config.ProgressStore.UpsertProgress(ctx, f.FileID, p, cumulativeRows); err != nil {
		return fmt.Errorf("recording progress for page %d: %w", p, err)
	}

	if o.config.Collector != nil {
		o.config.Collector.IncPagesProcessed(f.FileID)
		o.config.Collector.AddRowsWritten(f.FileID, len(rows))
	}
	return nil
}

func (o *Orchestrator) finalize(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make([]error, len(o.config.Files))

	for i, f := range o.config.Files {
		wg.Add(1)
		go func(i int, f batchworker.FileConfig) {
			defer wg.Done()
			errs[i] = o.finalizeFile(ctx, f)
		}(i, f)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("finalizing file %s: %w", o.config.Files[i].FileID, err)
		}
	}
	return nil
}

func (o *Orchestrator) finalizeFile(ctx context.Context, f batchworker.FileConfig) error {
	writer := outputwriter.New(o.resolveFilePath(f))
	if err := writer.RemoveFooter(); err != nil {
		return fmt.Errorf("removing footer: %w", err)
	}

	if err := o.config.ProgressStore.SetCompleted(ctx, f.FileID); err != nil {
		return fmt.Errorf("recording completion: %w", err)
	}

	progress, err := o.config.ProgressStore.Get(ctx, f.FileID)
	if err != nil {
		return fmt.Errorf("reading final progress: %w", err)
	}

	err = retry.Do(ctx, o.config.RetryConfig, func(ctx context.Context) error {
		return o.config.EventPublisher.PublishCompleted(ctx, o.config.WorkerID, f.FileID, o.config.EventType, progress.CumulativeRows)
	})
	if err != nil {
		if o.config.Collector != nil {
			o.config.Collector.IncPublishFailures(f.FileID)
		}
		return fmt.Errorf("publishing completion event: %w", err)
	}

	if o.config.Collector != nil {
		o.config.Collector.IncFilesCompleted(f.FileID)
	}
	return nil
}

var _ batchworker.Runner = (*Orchestrator)(nil)

// resolveFilePath expands "{date}" in f.FileNamePattern to the current UTC
// date (YYYYMMDD) and joins it under OutputRootPath.
func (o *Orchestrator) resolveFilePath(f batchworker.FileConfig) string {
	name := strings.ReplaceAll(f.FileNamePattern, "{date}", time.Now().UTC().Format("20060102"))
	return filepath.Join(o.config.OutputRootPath, name)
}
