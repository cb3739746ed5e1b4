package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	orchestratorx "github.com/tanpawarit/auracx/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/auracx/agent/agents/specialist"
	auditx "github.com/tanpawarit/auracx/agent/audit"
	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	classifierx "github.com/tanpawarit/auracx/agent/classifier"
	contractx "github.com/tanpawarit/auracx/agent/contract"
	fallbackx "github.com/tanpawarit/auracx/agent/fallback"
	generatorx "github.com/tanpawarit/auracx/agent/generator"
	llmx "github.com/tanpawarit/auracx/agent/llm"
	notifyx "github.com/tanpawarit/auracx/agent/notify"
	promptx "github.com/tanpawarit/auracx/agent/prompt"
	redactx "github.com/tanpawarit/auracx/agent/redact"
	apix "github.com/tanpawarit/auracx/api"
	configx "github.com/tanpawarit/auracx/pkg/config"
	kafkax "github.com/tanpawarit/auracx/pkg/kafka"
	_ "github.com/tanpawarit/auracx/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/auracx/pkg/openrouter"
	qstashx "github.com/tanpawarit/auracx/pkg/qstash"
)

type AppConfig struct {
	Name        string `split_words:"true" default:"auracx"`
	Environment string `split_words:"true" default:"development"`
	Version     string `split_words:"true" default:"dev"`
}

type RouterConfig struct {
	orchestratorx.Config
	FallbackTimeout time.Duration `split_words:"true" default:"10s"`
	NearbyRadiusKm  float64       `split_words:"true" default:"25"`
	MaxNearby       int           `split_words:"true" default:"3"`
}

type models struct {
	classifier contractx.Classifier
	generator  contractx.Generator
	grounded   contractx.Generator
}

func main() {
	appCfg := configx.MustNew[AppConfig]("APP")
	httpCfg := configx.MustNew[apix.Config]("HTTP")
	routerCfg := configx.MustNew[RouterConfig]("ROUTER")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	catalogCfg := configx.MustNew[catalogx.Config]("CATALOG")
	auditCfg := configx.MustNew[auditx.UpstashConfig]("AUDIT")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	kafkaCfg := configx.MustNew[kafkax.Config]("KAFKA")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.With().Str("service", appCfg.Name).Str("env", appCfg.Environment).Logger()
	ctx = logger.WithContext(ctx)

	snap, err := catalogx.Load(ctx, *catalogCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}
	logger.Info().Str("source", catalogCfg.Source).Strs("stores", snap.StoreIDs()).Msg("catalog loaded")

	registry := specialistx.NewDefaultRegistry(snap, specialistx.Options{
		NearbyRadiusKm: routerCfg.NearbyRadiusKm,
		MaxNearby:      routerCfg.MaxNearby,
	})
	if err := registry.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("agent routing table is incomplete")
	}

	m, err := buildModels(ctx, *llmCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("build language models")
	}

	opts, sinkChecks, closeSinks := buildSinks(ctx, *auditCfg, *qstashCfg, *kafkaCfg)
	defer closeSinks()

	orch, err := orchestratorx.New(
		redactx.New(),
		m.classifier,
		registry,
		m.generator,
		fallbackx.New(nil, m.grounded, fallbackx.WithTimeout(routerCfg.FallbackTimeout)),
		routerCfg.Config,
		opts...,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("build orchestrator")
	}

	handler := apix.NewHandler(orch, *httpCfg, apix.Options{
		Service:     appCfg.Name,
		Version:     appCfg.Version,
		Environment: appCfg.Environment,
		Checks: append([]apix.HealthCheck{{
			Name: "catalog",
			Check: func(context.Context) error {
				if len(snap.StoreIDs()) == 0 {
					return errors.New("catalog has no stores")
				}
				return nil
			},
		}}, sinkChecks...),
	})
	srv := apix.NewServer(*httpCfg, handler)

	go func() {
		logger.Info().Str("addr", httpCfg.Addr).Bool("llm", llmCfg.Enabled()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}
}

// buildModels wires the language model clients. Without an API key the service runs
// offline on the keyword classifier and template generator.
func buildModels(ctx context.Context, cfg llmx.Config) (models, error) {
	if !cfg.Enabled() {
		log.Ctx(ctx).Warn().Msg("LLM_API_KEY not set, using offline classifier and template generator")
		template := generatorx.NewTemplate()
		return models{
			classifier: classifierx.NewKeyword(),
			generator:  template,
			grounded:   template,
		}, nil
	}
	if err := cfg.Validate(); err != nil {
		return models{}, err
	}

	prompts := promptx.LoadPromptSet()

	clsCfg := cfg.OpenRouterFor(llmx.RoleClassifier)
	chatModel, err := clsCfg.New(ctx)
	if err != nil {
		return models{}, err
	}
	cls, err := classifierx.New(ctx, chatModel, prompts.Classifier,
		classifierx.WithTimeout(cfg.TimeoutFor(llmx.RoleClassifier)),
	)
	if err != nil {
		return models{}, err
	}

	genCfg := cfg.OpenRouterFor(llmx.RoleGenerator)
	client := openrouterx.NewClient(genCfg)
	base := generatorx.OpenAIConfig{
		Model:       genCfg.Model,
		Temperature: genCfg.Temperature,
		MaxTokens:   cfg.MaxCompletionToken,
		Timeout:     cfg.TimeoutFor(llmx.RoleGenerator),
	}

	genOpts := base
	genOpts.SystemPrompt = prompts.Generator
	gen, err := generatorx.NewOpenAI(client, genOpts)
	if err != nil {
		return models{}, err
	}

	groundedOpts := base
	groundedOpts.SystemPrompt = prompts.Fallback
	grounded, err := generatorx.NewOpenAI(client, groundedOpts)
	if err != nil {
		return models{}, err
	}

	return models{classifier: cls, generator: gen, grounded: grounded}, nil
}

// buildSinks picks the audit, decision and escalation targets. Unconfigured targets
// fall back to logging, or are skipped for decision events. Remote sinks that can be
// probed come back as health checks.
func buildSinks(
	ctx context.Context,
	auditCfg auditx.UpstashConfig,
	qstashCfg qstashx.Config,
	kafkaCfg kafkax.Config,
) ([]orchestratorx.Option, []apix.HealthCheck, func()) {
	logger := log.Ctx(ctx)
	var (
		opts    []orchestratorx.Option
		checks  []apix.HealthCheck
		closers []func()
	)

	var audit contractx.AuditSink = auditx.LogSink{}
	if auditCfg.Enabled() {
		sink, err := auditx.NewUpstashSink(auditCfg, auditx.WithKeyPrefix(auditCfg.KeyPrefix))
		if err != nil {
			logger.Fatal().Err(err).Msg("build audit sink")
		}
		audit = sink
		checks = append(checks, apix.HealthCheck{Name: "audit", Check: sink.Ping})
	}
	opts = append(opts, orchestratorx.WithAuditSink(audit))

	var escalations contractx.EscalationNotifier = notifyx.LogEscalations{}
	if qstashCfg.Enabled() {
		escalations = notifyx.NewQStashEscalations(qstashx.MustNew(qstashCfg))
	}
	opts = append(opts, orchestratorx.WithEscalationNotifier(escalations))

	if kafkaCfg.Enabled() {
		producer, err := kafkax.NewProducer(kafkaCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("build kafka producer")
		}
		opts = append(opts, orchestratorx.WithDecisionSink(notifyx.NewKafkaDecisions(producer)))
		closers = append(closers, func() {
			if err := producer.Close(); err != nil {
				logger.Warn().Err(err).Msg("close kafka producer")
			}
		})
	}

	return opts, checks, func() {
		for _, c := range closers {
			c()
		}
	}
}
