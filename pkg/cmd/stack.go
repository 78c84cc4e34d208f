package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/interrupt"
	"github.com/dukex/docflow/pkg/metrics"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/render"
	"github.com/dukex/docflow/pkg/router"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/session"
	"github.com/dukex/docflow/pkg/templates"
	"github.com/dukex/docflow/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

type StackConfig struct {
	ServiceName       string
	DatabaseURL       string
	EventBus          string
	KafkaBrokers      string
	TemplatesPath     string
	TemplateDir       string
	OutputDir         string
	Oracles           OracleConfig
	MaxPromptAttempts int
	RetentionDays     int
	Tracing           bool
}

// Stack is every long-lived component a docflow binary runs on.
type Stack struct {
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Catalog     *templates.Catalog
	Registry    *session.Registry
	Documents   *services.Document
	Router      *router.Router
	Sweeper     *session.Sweeper
	Metrics     *metrics.Metrics
	Health      *services.Health
	Audit       *services.Audit

	shutdownTracer otelhelper.Shutdown
}

func NewStack(ctx context.Context, logger *slog.Logger, cfg StackConfig) (*Stack, error) {
	s := &Stack{Metrics: metrics.New()}

	var tracer trace.Tracer

	if cfg.Tracing {
		t, shutdown, err := otelhelper.NewTracer(ctx, cfg.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		tracer = t
		s.shutdownTracer = shutdown
	} else {
		tracer = otelhelper.Tracer(cfg.ServiceName)
	}

	p, err := NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Join(err, s.Close(ctx))
	}

	s.Persistence = p
	s.Health = services.NewHealth(p)

	bus, err := NewEventBus(logger, cfg.EventBus, cfg.KafkaBrokers, cfg.ServiceName)
	if err != nil {
		return nil, errors.Join(err, s.Close(ctx))
	}

	s.EventBus = bus

	oracles, err := NewOracles(cfg.Oracles)
	if err != nil {
		return nil, errors.Join(err, s.Close(ctx))
	}

	s.Catalog = templates.Load(logger, cfg.TemplatesPath)

	engineOpts := []workflow.Option{workflow.WithTracer(tracer)}
	if cfg.MaxPromptAttempts > 0 {
		engineOpts = append(engineOpts, workflow.WithMaxPromptAttempts(cfg.MaxPromptAttempts))
	}

	engine, err := workflow.NewEngine(logger, oracles.Set, s.Catalog, render.NewRenderer(logger, cfg.TemplateDir, cfg.OutputDir), engineOpts...)
	if err != nil {
		return nil, errors.Join(err, s.Close(ctx))
	}

	controller := interrupt.NewController(logger, engine, p.Snapshots())

	s.Documents = services.NewDocument(logger, controller,
		services.WithPublisher(bus),
		services.WithMetrics(s.Metrics),
		services.WithTracer(tracer),
	)
	s.Registry = session.NewRegistry(logger, p.Sessions())
	s.Router = router.New(logger, s.Registry, s.Documents,
		router.WithAgentClassifier(oracles.Agent),
		router.WithMetrics(s.Metrics),
	)
	s.Sweeper = session.NewSweeper(logger, s.Registry, p.Snapshots(), cfg.RetentionDays, bus, s.Metrics)
	s.Audit = services.NewAudit(logger, s.Metrics)

	return s, nil
}

// Consume registers the event audit on the bus and starts receiving events.
func (s *Stack) Consume(ctx context.Context) error {
	if err := s.Audit.Register(s.EventBus); err != nil {
		return err
	}

	if err := s.EventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	return nil
}

// Close stops the sweeper and releases the event bus, the store and the tracer.
func (s *Stack) Close(ctx context.Context) error {
	var errs []error

	if s.Sweeper != nil {
		errs = append(errs, s.Sweeper.Stop(ctx))
	}

	if s.EventBus != nil {
		if err := s.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
		}
	}

	if s.Persistence != nil {
		if err := s.Persistence.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close persistence: %w", err))
		}
	}

	if s.shutdownTracer != nil {
		if err := s.shutdownTracer(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracer: %w", err))
		}
	}

	return errors.Join(errs...)
}
