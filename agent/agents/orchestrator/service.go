package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/auracx/agent/contract"
	nodex "github.com/tanpawarit/auracx/agent/nodes"
	metricsx "github.com/tanpawarit/auracx/pkg/metrics"
)

type Config struct {
	ConfidenceThreshold float64       `split_words:"true" default:"0.7"`
	AgentTimeout        time.Duration `split_words:"true" default:"2s"`
	RequestTimeout      time.Duration `split_words:"true" default:"45s"`
	SinkTimeout         time.Duration `split_words:"true" default:"3s"`
	EscalateEmotions    []string      `split_words:"true"`
}

func (c Config) policy() nodex.Policy {
	p := nodex.DefaultPolicy()
	if c.ConfidenceThreshold > 0 {
		p.ConfidenceThreshold = c.ConfidenceThreshold
	}
	for _, e := range c.EscalateEmotions {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		p.EscalateEmotions = append(p.EscalateEmotions, contractx.Emotion(strings.ToLower(e)))
	}
	return p
}

type Option func(*Orchestrator)

func WithAuditSink(sink contractx.AuditSink) Option {
	return func(o *Orchestrator) { o.audit = sink }
}

func WithDecisionSink(sink contractx.DecisionSink) Option {
	return func(o *Orchestrator) { o.decisions = sink }
}

func WithEscalationNotifier(n contractx.EscalationNotifier) Option {
	return func(o *Orchestrator) { o.escalations = n }
}

type Orchestrator struct {
	redactor   contractx.Redactor
	classifier contractx.Classifier
	registry   contractx.Registry
	generator  contractx.Generator
	fallback   contractx.FallbackPath

	audit       contractx.AuditSink
	decisions   contractx.DecisionSink
	escalations contractx.EscalationNotifier

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	policy         nodex.Policy
	agentTimeout   time.Duration
	requestTimeout time.Duration
	sinkTimeout    time.Duration

	now   func() time.Time
	newID func() string
}

func New(
	redactor contractx.Redactor,
	classifier contractx.Classifier,
	registry contractx.Registry,
	generator contractx.Generator,
	fallback contractx.FallbackPath,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if redactor == nil {
		return nil, errors.New("redactor is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if registry == nil {
		return nil, errors.New("agent registry is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if fallback == nil {
		return nil, errors.New("fallback path is required")
	}

	o := &Orchestrator{
		redactor:       redactor,
		classifier:     classifier,
		registry:       registry,
		generator:      generator,
		fallback:       fallback,
		policy:         cfg.policy(),
		agentTimeout:   cfg.AgentTimeout,
		requestTimeout: cfg.RequestTimeout,
		sinkTimeout:    cfg.SinkTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	if o.agentTimeout <= 0 {
		o.agentTimeout = nodex.DefaultAgentTimeout
	}
	if o.sinkTimeout <= 0 {
		o.sinkTimeout = 3 * time.Second
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// IsInputError reports whether err was caused by the inbound message rather than
// by the pipeline. Internal ErrValidation failures are not input errors.
func IsInputError(err error) bool {
	return errors.Is(err, contractx.ErrInvalidMessage) ||
		errors.Is(err, contractx.ErrInvalidCustomer) ||
		errors.Is(err, contractx.ErrInvalidLocation)
}

// Handle runs one message through the router. Input errors are returned; any other
// pipeline failure becomes an apology that requires escalation.
func (o *Orchestrator) Handle(ctx context.Context, msg contractx.Message) (contractx.Response, error) {
	start := o.now()
	if strings.TrimSpace(msg.RequestID) == "" {
		msg.RequestID = o.newID()
	}

	logger := log.Ctx(ctx).With().Str("request_id", msg.RequestID).Logger()
	ctx = logger.WithContext(ctx)

	if o.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.requestTimeout)
		defer cancel()
	}

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Message: msg})
	if err != nil {
		if IsInputError(err) {
			return contractx.Response{}, err
		}
		logger.Error().Err(err).Msg("message pipeline failed")
		out = o.apology(msg, start)
	}

	o.observe(ctx, msg, out, start)
	return out.Response, nil
}

func (o *Orchestrator) apology(msg contractx.Message, at time.Time) nodex.GraphOutput {
	return nodex.GraphOutput{
		Response: contractx.Response{
			RequestID:          msg.RequestID,
			Reply:              nodex.ApologyReply,
			Intent:             contractx.IntentOther,
			Emotion:            contractx.EmotionNeutral,
			Mode:               contractx.ModeFallback,
			EscalationRequired: true,
			Timestamp:          at.UTC(),
		},
		Reason: nodex.ReasonPipelineError,
	}
}

// observe records metrics and delivers the decision and escalation events. Sink
// failures are logged and never change the reply.
func (o *Orchestrator) observe(ctx context.Context, msg contractx.Message, out nodex.GraphOutput, start time.Time) {
	resp := out.Response
	elapsed := o.now().Sub(start)
	logger := log.Ctx(ctx)

	metricsx.RequestsTotal.WithLabelValues(string(resp.Mode), string(resp.Intent), strconv.FormatBool(resp.EscalationRequired)).Inc()
	metricsx.RequestDuration.WithLabelValues(string(resp.Mode)).Observe(elapsed.Seconds())
	if resp.EscalationRequired {
		metricsx.Escalations.WithLabelValues(reasonLabel(out.Reason)).Inc()
	}

	logger.Info().
		Str("intent", string(resp.Intent)).
		Str("mode", string(resp.Mode)).
		Float64("confidence", resp.Confidence).
		Bool("escalated", resp.EscalationRequired).
		Strs("trail", out.Trail).
		Dur("duration", elapsed).
		Msg("message handled")

	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.sinkTimeout)
	defer cancel()

	if o.decisions != nil {
		ev := contractx.DecisionEvent{
			RequestID:    resp.RequestID,
			CustomerID:   msg.CustomerID,
			Intent:       resp.Intent,
			Confidence:   resp.Confidence,
			Emotion:      resp.Emotion,
			Degraded:     out.Degraded,
			Mode:         resp.Mode,
			Agents:       out.Agents,
			FailedAgents: out.FailedAgents,
			States:       out.Trail,
			Escalated:    resp.EscalationRequired,
			Reason:       out.Reason,
			Duration:     float64(elapsed.Microseconds()) / 1000,
			At:           resp.Timestamp,
		}
		if err := o.decisions.Publish(sinkCtx, ev); err != nil {
			metricsx.SinkFailures.WithLabelValues("decision").Inc()
			logger.Warn().Err(err).Msg("decision event publish failed")
		}
	}

	if resp.EscalationRequired && o.escalations != nil {
		ev := contractx.EscalationEvent{
			RequestID:  resp.RequestID,
			CustomerID: msg.CustomerID,
			Intent:     resp.Intent,
			Emotion:    resp.Emotion,
			Mode:       resp.Mode,
			Reason:     out.Reason,
			At:         resp.Timestamp,
		}
		if err := o.escalations.Notify(sinkCtx, ev); err != nil {
			metricsx.SinkFailures.WithLabelValues("escalation").Inc()
			logger.Warn().Err(err).Msg("escalation notify failed")
		}
	}
}

func reasonLabel(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		reason = reason[:i]
	}
	if reason == "" {
		return "unknown"
	}
	return reason
}
