package goIdentity

import (
	"errors"
	"time"

	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/MrEthical07/goIdentity/internal/enroll"
	"github.com/MrEthical07/goIdentity/profile"
	"github.com/MrEthical07/goIdentity/session"
	"github.com/rs/zerolog"
)

// Builder assembles a [Manager]. A Builder is single-use.
type Builder struct {
	config Config

	backend   backend.Client
	profiles  profile.Resolver
	auditSink AuditSink
	logger    zerolog.Logger
	clock     func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackend sets the identity backend. Required.
func (b *Builder) WithBackend(c backend.Client) *Builder {
	b.backend = c
	return b
}

// WithProfileResolver sets where application profiles come from. Required.
func (b *Builder) WithProfileResolver(r profile.Resolver) *Builder {
	b.profiles = r
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides time.Now; used for friendly names and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and returns a Manager. Call
// [Manager.Start] before use.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.backend == nil {
		return nil, errors.New("identity backend required")
	}
	if b.profiles == nil {
		return nil, errors.New("profile resolver required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.clock
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		config:   cfg,
		backend:  b.backend,
		profiles: b.profiles,
		store:    session.NewStore(),
		enroll:   enroll.NewController(),
		metrics:  NewMetrics(cfg.Metrics),
		log:      b.logger.With().Str("component", "identity").Logger(),
		now:      now,
	}
	m.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, m.onAuditFailure)

	b.built = true
	return m, nil
}
