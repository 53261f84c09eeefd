// Package supervision implements the background overdue-delegation sweep
// (C8), spec §4.8: detect delegations past their DueAt, escalate the
// retry counter, and alert or escalate depending on the retry budget.
package supervision

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cortexrt/runtime/internal/bus"
	"github.com/cortexrt/runtime/internal/envelope"
	"github.com/cortexrt/runtime/internal/registry"
)

// AgentRuntime is the narrow slice of internal/runtime this service needs:
// "is DelegatedTo currently running?", spec §4.8 step 3.
type AgentRuntime interface {
	IsRunning(agentId string) bool
}

const (
	defaultInterval         = 60 * time.Second
	defaultMaxRetries       = 3
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = 30 * time.Minute
)

// Config tunes one Service instance.
type Config struct {
	Interval         time.Duration
	MaxRetries       int
	CosQueue         string
	EscalationTarget string
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.CosQueue == "" {
		c.CosQueue = "agent.cos"
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = defaultBreakerThreshold
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = defaultBreakerCooldown
	}
	return c
}

// Service is the C8 component.
type Service struct {
	cfg Config

	delegations *registry.DelegationRegistry
	retries     *registry.RetryCounterRegistry
	agents      *registry.AgentRegistry
	runtime     AgentRuntime
	bus         bus.Bus
	breakers    *BreakerRegistry

	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

type Deps struct {
	Delegations *registry.DelegationRegistry
	Retries     *registry.RetryCounterRegistry
	Agents      *registry.AgentRegistry
	Runtime     AgentRuntime
	Bus         bus.Bus
	Logger      *log.Logger
	Now         func() time.Time
}

func NewService(cfg Config, d Deps) *Service {
	cfg = cfg.withDefaults()
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		cfg:         cfg,
		delegations: d.Delegations,
		retries:     d.Retries,
		agents:      d.Agents,
		runtime:     d.Runtime,
		bus:         d.Bus,
		breakers:    NewBreakerRegistry(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:      logger,
		now:         now,
	}
}

// Start runs the periodic sweep on its own goroutine until Stop is called
// or ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)
}

func (s *Service) run(ctx context.Context) {
	defer close(s.stopped)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckOverdueAsync(ctx)
		}
	}
}

// Stop cancels the sweep goroutine and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// CheckOverdueAsync runs one sweep synchronously, spec §4.8 steps 1-5,
// exposed separately from the ticker loop for deterministic test
// invocation.
func (s *Service) CheckOverdueAsync(ctx context.Context) {
	now := s.now()
	overdue := s.delegations.FindOverdue(now)
	for _, d := range overdue {
		n := s.retries.Increment(d.ReferenceCode)
		running := s.runtime.IsRunning(d.DelegatedTo)

		if n < s.cfg.MaxRetries {
			s.publishSupervisionAlert(ctx, d, n, running)
			continue
		}

		s.publishEscalationAlert(ctx, d, n)
		if s.breakers.RecordFailure(d.DelegatedTo, now) {
			s.agents.SetStatus(d.DelegatedTo, registry.Unavailable)
			s.logger.Printf("supervision: circuit breaker tripped, marking %s unavailable", d.DelegatedTo)
		}
	}

	s.admitRecoveredAgents(now)
}

func (s *Service) publishSupervisionAlert(ctx context.Context, d registry.Delegation, n int, running bool) {
	alert := &envelope.SupervisionAlert{
		Base:             envelope.NewBase(),
		RefCode:          d.ReferenceCode,
		DelegatedAgentId: d.DelegatedTo,
		RetryCount:       n,
		DueAt:            formatDueAt(d.DueAt),
		Description:      d.Description,
		IsAgentRunning:   running,
	}
	out := envelope.Envelope{Message: alert, ReferenceCode: d.ReferenceCode}
	if err := s.bus.PublishAsync(ctx, out, s.cfg.CosQueue); err != nil {
		s.logger.Printf("supervision: publish supervision alert failed for %s: %v", d.ReferenceCode, err)
	}
}

func (s *Service) publishEscalationAlert(ctx context.Context, d registry.Delegation, n int) {
	esc := &envelope.EscalationAlert{
		Base:                envelope.NewBase(),
		RefCode:             d.ReferenceCode,
		DelegatedAgentId:    d.DelegatedTo,
		RetryCount:          n,
		Reason:              "retry budget exhausted",
		OriginalDescription: d.Description,
	}
	out := envelope.Envelope{Message: esc, ReferenceCode: d.ReferenceCode}
	if err := s.bus.PublishAsync(ctx, out, s.cfg.EscalationTarget); err != nil {
		s.logger.Printf("supervision: publish escalation alert failed for %s: %v", d.ReferenceCode, err)
	}
}

// admitRecoveredAgents re-marks Available any agent whose circuit breaker
// has cleared its cooldown, giving it one probe delegation.
func (s *Service) admitRecoveredAgents(now time.Time) {
	for _, agentId := range s.breakers.ReadyForProbe(now) {
		s.agents.SetStatus(agentId, registry.Available)
		s.logger.Printf("supervision: circuit breaker cooldown elapsed, re-admitting %s for probe", agentId)
	}
}

func formatDueAt(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
