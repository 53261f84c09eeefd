// Package config assembles the runtime's tunables from a flag set, the
// teacher's constructor-argument style (NewEngine(natsURL, serverTopic,
// user, password, selfID)) generalized to one struct instead of five
// positional parameters, spec §10.3.
package config

import (
	"flag"
	"time"
)

// Config holds every value the entrypoint needs to wire the runtime.
type Config struct {
	NatsURL    string
	StreamName string
	DlqSubject string

	SequenceStorePath string
	ContextStorePath  string
	ContextSecretHex  string // 32-byte secretbox key, hex-encoded; empty disables context sealing

	SupervisionInterval time.Duration
	MaxRetries          int
	EscalationTarget    string
	ConfidenceThreshold float64

	CosAgentId string
}

// Parse builds a Config from args (typically os.Args[1:]), filling in the
// same defaults the Chief of Staff and supervision packages already fall
// back to when left zero-valued.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("cortexd", flag.ContinueOnError)

	var cfg Config
	fs.StringVar(&cfg.NatsURL, "nats-url", "nats://localhost:4222", "NATS server URL")
	fs.StringVar(&cfg.StreamName, "stream", "CORTEX", "JetStream stream name covering agent.>")
	fs.StringVar(&cfg.DlqSubject, "dlq-subject", "agent.dlq", "dead-letter subject")

	fs.StringVar(&cfg.SequenceStorePath, "sequence-store", "./data/sequence", "sequence store directory")
	fs.StringVar(&cfg.ContextStorePath, "context-store", "./data/context", "context entry store directory")
	fs.StringVar(&cfg.ContextSecretHex, "context-secret", "", "hex-encoded 32-byte secretbox key for sealed context entries (empty disables sealing)")

	fs.DurationVar(&cfg.SupervisionInterval, "supervision-interval", 60*time.Second, "overdue-delegation sweep interval")
	fs.IntVar(&cfg.MaxRetries, "max-retries", 3, "retries before a delegation escalates")
	fs.StringVar(&cfg.EscalationTarget, "escalation-target", "agent.human-overseer", "queue that receives escalations and plan proposals")
	fs.Float64Var(&cfg.ConfidenceThreshold, "confidence-threshold", 0.6, "minimum pipeline confidence before escalating instead of dispatching")

	fs.StringVar(&cfg.CosAgentId, "cos-agent-id", "agent-cos", "Chief of Staff agent id")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
