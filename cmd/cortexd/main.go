// Command cortexd boots the multi-agent orchestration runtime: it wires
// every registry, the message bus, the Chief of Staff persona, a handful
// of specialist personas, and the supervision sweep, then blocks until a
// termination signal drains everything in place.
//
// The step numbering below mirrors the teacher's own constructor-injection
// walkthrough (see NewEngine's callers in the original delegation example)
// — replaced here with real wiring instead of a scripted demo.
package main

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cortexrt/runtime/internal/bus"
	"github.com/cortexrt/runtime/internal/config"
	"github.com/cortexrt/runtime/internal/contextstore"
	"github.com/cortexrt/runtime/internal/cos"
	"github.com/cortexrt/runtime/internal/fsstore"
	"github.com/cortexrt/runtime/internal/harness"
	"github.com/cortexrt/runtime/internal/market"
	"github.com/cortexrt/runtime/internal/pipeline"
	"github.com/cortexrt/runtime/internal/refcode"
	"github.com/cortexrt/runtime/internal/registry"
	"github.com/cortexrt/runtime/internal/runtime"
	"github.com/cortexrt/runtime/internal/security"
	"github.com/cortexrt/runtime/internal/skillexec"
	"github.com/cortexrt/runtime/internal/supervision"
	"github.com/cortexrt/runtime/internal/workflow"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("cortexd: parse config: %v", err)
	}

	logger := log.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// STEP 1: sequence store + reference-code generator (spec §4.1, §6.2).
	seqFS, err := fsstore.OpenLocal(cfg.SequenceStorePath)
	if err != nil {
		log.Fatalf("cortexd: open sequence store: %v", err)
	}
	refcodes := refcode.NewGenerator(fsstore.NewSequenceStore(seqFS), time.Now)

	// STEP 2: context registry, optionally sealing sensitive categories at
	// rest (spec §3.8, §6.3).
	ctxFS, err := fsstore.OpenLocal(cfg.ContextStorePath)
	if err != nil {
		log.Fatalf("cortexd: open context store: %v", err)
	}
	var sealer *contextstore.Sealer
	if cfg.ContextSecretHex != "" {
		secret, err := hex.DecodeString(cfg.ContextSecretHex)
		if err != nil {
			log.Fatalf("cortexd: decode context secret: %v", err)
		}
		sealer, err = contextstore.NewSealer(secret)
		if err != nil {
			log.Fatalf("cortexd: build context sealer: %v", err)
		}
	}
	contextFileStore := fsstore.NewContextFileStore(ctxFS, "entries")
	contextPersister := contextstore.NewFilePersister(contextFileStore, sealer)
	contextReg := registry.NewContextRegistry(contextPersister)

	// STEP 3: in-memory registries (spec §3.10, §4.3).
	agents := registry.NewAgentRegistry()
	skills := registry.NewSkillRegistry()
	delegations := registry.NewDelegationRegistry()
	pending := registry.NewPendingPlanRegistry()
	retries := registry.NewRetryCounterRegistry()
	workflows := workflow.NewTracker()

	// STEP 4: connect to the bus. A dead-lettered envelope is logged here;
	// production deployments can swap in a sink that re-publishes to an
	// audit stream instead.
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatalf("cortexd: connect to nats at %s: %v", cfg.NatsURL, err)
	}
	defer nc.Drain()

	transport, err := bus.NewNatsBus(ctx, nc, cfg.StreamName, []string{"agent.>"}, cfg.DlqSubject, deadLetterLogger{logger}, logger)
	if err != nil {
		log.Fatalf("cortexd: build nats bus: %v", err)
	}

	// STEP 5: plan-token sealing for AskMeFirst gating (spec §4.7.4).
	tokens, err := security.NewPlanTokenSealer()
	if err != nil {
		log.Fatalf("cortexd: build plan token sealer: %v", err)
	}

	// STEP 6: skill pipeline — decomposition for the Chief of Staff,
	// answer executors for every specialist capability.
	skills.Register(registry.Skill{SkillId: "triage", ExecutorType: skillexec.ExecutorTypeDecompose, Category: "coordination"})
	specialistCapabilities := []string{"research", "draft", "format", "code-review"}
	for _, cap := range specialistCapabilities {
		skills.Register(registry.Skill{SkillId: cap, ExecutorType: skillexec.ExecutorTypeAnswer, Category: "specialist"})
	}
	decomposeExecutor := skillexec.NewDecomposeExecutor(nil)
	answerExecutor := skillexec.NewAnswerExecutor(nil)
	runner := pipeline.NewRunner(skills, decomposeExecutor, answerExecutor)

	// STEP 7: runtime + team ceiling. No team ceilings are configured by
	// default; every agent answers to its own AuthorityClaims only.
	rt := runtime.New(logger)
	selector := market.FirstAvailable{}

	// STEP 8: the Chief of Staff persona (spec §4.6/§4.7).
	cosCfg := cos.Config{
		AgentId:             cfg.CosAgentId,
		Capabilities:        nil,
		Pipeline:            []string{"triage"},
		EscalationTarget:    cfg.EscalationTarget,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxRetries:          cfg.MaxRetries,
	}
	cosAgent := cos.New(cosCfg, cos.Deps{
		Bus:         transport,
		Refcodes:    refcodes,
		Agents:      agents,
		Delegations: delegations,
		Pending:     pending,
		Retries:     retries,
		ContextReg:  contextReg,
		Workflows:   workflows,
		Pipeline:    runner,
		Selector:    selector,
		Tokens:      tokens,
		Logger:      logger,
	})
	cosHarness := harness.New(registry.Agent{AgentId: cfg.CosAgentId, Capabilities: nil}, cosAgent, transport, agents, nil, nil, logger)
	if err := rt.StartAgentAsync(ctx, cosHarness, ""); err != nil {
		log.Fatalf("cortexd: start chief of staff: %v", err)
	}

	// STEP 9: one specialist persona per capability, each a terminal
	// leaf — its pipeline's answer executor is the whole of its work.
	for _, cap := range specialistCapabilities {
		specAgentId := "agent-" + cap
		specCfg := cos.Config{
			AgentId:             specAgentId,
			Capabilities:        []string{cap},
			Pipeline:            []string{cap},
			EscalationTarget:    cfg.EscalationTarget,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			MaxRetries:          cfg.MaxRetries,
		}
		specAgent := cos.New(specCfg, cos.Deps{
			Bus:         transport,
			Refcodes:    refcodes,
			Agents:      agents,
			Delegations: delegations,
			Pending:     pending,
			Retries:     retries,
			Workflows:   workflows,
			Pipeline:    runner,
			Selector:    selector,
			Logger:      logger,
		})
		specHarness := harness.New(registry.Agent{AgentId: specAgentId, Capabilities: []string{cap}}, specAgent, transport, agents, nil, nil, logger)
		if err := rt.StartAgentAsync(ctx, specHarness, ""); err != nil {
			log.Fatalf("cortexd: start specialist %s: %v", specAgentId, err)
		}
	}

	// STEP 10: supervision sweep (spec §4.8).
	sup := supervision.NewService(supervision.Config{
		Interval:         cfg.SupervisionInterval,
		MaxRetries:       cfg.MaxRetries,
		CosQueue:         registry.Agent{AgentId: cfg.CosAgentId}.Queue(),
		EscalationTarget: cfg.EscalationTarget,
	}, supervision.Deps{
		Delegations: delegations,
		Retries:     retries,
		Agents:      agents,
		Runtime:     rt,
		Bus:         transport,
		Logger:      logger,
	})
	sup.Start(ctx)

	log.Printf("cortexd: running, agents=%v", rt.RunningAgentIds())

	<-ctx.Done()
	log.Printf("cortexd: shutdown signal received, draining")

	sup.Stop()
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rt.StopAll(drainCtx); err != nil {
		log.Printf("cortexd: stop all agents: %v", err)
	}
	if err := transport.StopConsumingAsync(drainCtx); err != nil {
		log.Printf("cortexd: stop consuming: %v", err)
	}
	log.Printf("cortexd: shutdown complete")
}

// deadLetterLogger is the default bus.DeadLetterSink: log and move on.
type deadLetterLogger struct {
	logger *log.Logger
}

func (d deadLetterLogger) DeadLetter(ctx context.Context, dl bus.DeadLetter) {
	d.logger.Printf("cortexd: dead-lettered on %s: %s", dl.Queue, dl.Reason)
}
