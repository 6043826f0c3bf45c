package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/DeskForge/internal/adapter/otel"
	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/audit"
	"github.com/Strob0t/DeskForge/internal/domain/intent"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/port/completion"
	"github.com/Strob0t/DeskForge/internal/resilience"
)

const normalizePrompt = `Normalize the operator request below into a typed intent.
Respond with ONLY a JSON object with keys "action" (create, update, delete,
find, reassign, add, remove), "target" (ticket, article, team, skill, user,
schedule), and optional "criteria" (object), "name", "description",
"assignee", "member_criteria".

Request: %s`

// Pipeline wires the full request path: normalize, retrieve, extract, route,
// build, execute. Execution runs through the circuit breaker with checkpoint
// capture; every execution attempt is audited.
type Pipeline struct {
	oracle    completion.Oracle
	retriever *RetrieverService
	extractor *ExtractorService
	router    *RouterService
	executors map[string]Executor
	engine    *Engine
	breaker   *resilience.Breaker
	rollback  *RollbackService
	audit     *AuditService
	formatter *Formatter
	metrics   *otel.Metrics
	logger    *slog.Logger
}

type PipelineDeps struct {
	Oracle    completion.Oracle
	Retriever *RetrieverService
	Extractor *ExtractorService
	Router    *RouterService
	Executors []Executor
	Engine    *Engine
	Breaker   *resilience.Breaker
	Rollback  *RollbackService
	Audit     *AuditService
	Formatter *Formatter
	Metrics   *otel.Metrics
	Logger    *slog.Logger
}

func NewPipeline(d PipelineDeps) *Pipeline {
	execs := make(map[string]Executor, len(d.Executors))
	for _, ex := range d.Executors {
		execs[ex.Domain()] = ex
	}
	return &Pipeline{
		oracle:    d.Oracle,
		retriever: d.Retriever,
		extractor: d.Extractor,
		router:    d.Router,
		executors: execs,
		engine:    d.Engine,
		breaker:   d.Breaker,
		rollback:  d.Rollback,
		audit:     d.Audit,
		formatter: d.Formatter,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

// Process runs one operator request through the pipeline and returns the
// operator-facing response text.
func (p *Pipeline) Process(ctx context.Context, text, userID string) (string, error) {
	started := time.Now()
	out, err := p.process(ctx, text, userID)
	elapsed := time.Since(started)

	if p.metrics != nil {
		p.metrics.PipelineDuration.Record(ctx, elapsed.Seconds())
		switch {
		case err == nil:
			p.metrics.RequestsProcessed.Add(ctx, 1)
		case errors.Is(err, domain.ErrLowConfidence):
			p.metrics.LowConfidence.Add(ctx, 1)
		default:
			p.metrics.RequestsFailed.Add(ctx, 1)
		}
	}
	if err != nil {
		p.logger.Error("request failed", "user_id", userID, "elapsed", elapsed, "error", err)
		return "", err
	}
	p.logger.Info("request processed", "user_id", userID, "elapsed", elapsed)
	return out, nil
}

func (p *Pipeline) process(ctx context.Context, text, userID string) (string, error) {
	in, err := p.normalize(ctx, text)
	if err != nil {
		return "", err
	}

	rctx, span := otel.StartStageSpan(ctx, "retrieve")
	rc, err := p.retriever.Retrieve(rctx, *in)
	span.End()
	if err != nil {
		return "", err
	}

	ectx, span := otel.StartStageSpan(ctx, "extract")
	entities, err := p.extractor.Extract(ectx, text, rc)
	span.End()
	if err != nil {
		return "", err
	}
	groups := Group(entities)

	routed, err := p.router.Route(ctx, text, groups, entities, rc)
	if err != nil {
		return "", err
	}

	exec, ok := p.executors[routed.Domain]
	if !ok {
		return "", fmt.Errorf("%w: no executor for domain %q", domain.ErrValidation, routed.Domain)
	}
	opPlan, err := exec.Build(ctx, routed)
	if err != nil {
		return "", err
	}

	res, rec, err := p.execute(ctx, routed, opPlan, userID)
	if err != nil {
		return "", err
	}
	return p.formatter.Format(routed.Domain, routed.Operation, res, rc, rec), nil
}

// normalize classifies free text into a typed intent and strictly validates
// the result. Malformed oracle output is a validation failure.
func (p *Pipeline) normalize(ctx context.Context, text string) (*intent.Intent, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: request text is empty", domain.ErrValidation)
	}
	raw, err := p.oracle.Complete(ctx, fmt.Sprintf(normalizePrompt, text))
	if err != nil {
		return nil, fmt.Errorf("intent normalization: %w", err)
	}
	var in intent.Intent
	if err := json.Unmarshal([]byte(stripFences(raw)), &in); err != nil {
		return nil, fmt.Errorf("%w: malformed intent payload: %v", domain.ErrValidation, err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

// execute runs the plan through the circuit breaker with checkpoint capture
// and audits the attempt, success or failure.
func (p *Pipeline) execute(ctx context.Context, routed *RoutingResult, opPlan *plan.Plan, userID string) (*ExecutionResult, *audit.Record, error) {
	xctx, span := otel.StartExecutionSpan(ctx, routed.Domain, routed.Operation)
	defer span.End()

	mutating := opPlan.Action != plan.ActionSelect

	var checkpointID string
	var previous map[string]any
	if mutating {
		entityID, prev, err := p.engine.Snapshot(xctx, opPlan)
		if err != nil {
			return nil, nil, err
		}
		previous = prev
		checkpointID, err = p.rollback.CreateCheckpoint(xctx, routed.Domain, routed.Operation, entityID, prev)
		if err != nil {
			return nil, nil, err
		}
	}

	var res *ExecutionResult
	opName := routed.Domain + "." + routed.Operation
	execErr := p.breaker.Execute(xctx, opName, func(c context.Context) error {
		r, err := p.engine.Execute(c, opPlan)
		res = r
		return err
	})

	if execErr != nil {
		if checkpointID != "" {
			if ferr := p.rollback.Fail(xctx, checkpointID, execErr); ferr != nil {
				p.logger.Error("checkpoint fail-mark", "checkpoint_id", checkpointID, "error", ferr)
			}
		}
		if _, aerr := p.audit.Record(xctx, routed.Domain, routed.Operation, opPlan.Table, userID,
			previous, map[string]any{"error": execErr.Error()}); aerr != nil {
			return nil, nil, aerr
		}
		return nil, nil, execErr
	}

	if checkpointID != "" {
		if cerr := p.rollback.Commit(xctx, checkpointID, res.Data); cerr != nil {
			p.logger.Error("checkpoint commit", "checkpoint_id", checkpointID, "error", cerr)
		}
	}

	var rec *audit.Record
	if mutating {
		r, err := p.audit.Record(xctx, routed.Domain, routed.Operation, opPlan.Table, userID, previous, res.Data)
		if err != nil {
			return nil, nil, err
		}
		rec = r
	}
	return res, rec, nil
}

// UserMessage converts a pipeline error into the operator-facing form. The
// full error stays in logs; operators see a single sanitized line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return "Error processing request: " + err.Error()
}
