package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/funkyHat/orchard/pkg/plan"
	"github.com/funkyHat/orchard/pkg/storage"
	"github.com/funkyHat/orchard/pkg/telemetry"
)

// Config wires an Environment together.
type Config struct {
	// Name is the deployment name. Defaults to the plan name, then to
	// "local".
	Name string

	// Plan is the compiled deployment plan. Required.
	Plan *plan.Plan

	// Storage is the instance store backing this deployment. Required.
	Storage storage.Storage

	// Resolver resolves operation and workflow implementations.
	// Defaults to the process-wide DefaultRegistry.
	Resolver Resolver

	// Logger is the engine logger. Defaults to a disabled logger.
	Logger *telemetry.Logger

	// Metrics collects execution metrics when non-nil.
	Metrics *telemetry.Metrics

	// Tracer traces workflow executions when non-nil.
	Tracer *telemetry.Tracer
}

// Environment executes workflows against one local deployment. Construction
// eagerly resolves every operation mapping in the plan; a misconfigured
// mapping fails construction instead of a later execution, and no partially
// validated environment is ever returned.
type Environment struct {
	name     string
	plan     *plan.Plan
	storage  storage.Storage
	resolver Resolver
	log      *telemetry.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
}

// NewEnvironment validates the plan's wiring and returns a ready
// environment.
func NewEnvironment(cfg Config) (*Environment, error) {
	if cfg.Plan == nil {
		return nil, NewConfigurationError("a compiled plan is required", nil)
	}
	if cfg.Storage == nil {
		return nil, NewConfigurationError("a storage backend is required", nil)
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Plan.Name
	}
	if name == "" {
		name = "local"
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = DefaultRegistry
	}
	log := cfg.Logger
	if log == nil {
		log = telemetry.NopLogger()
	}

	st := cfg.Storage
	if cfg.Metrics != nil {
		st = newInstrumentedStorage(st, cfg.Metrics)
	}

	env := &Environment{
		name:     name,
		plan:     cfg.Plan,
		storage:  st,
		resolver: resolver,
		log:      log.Component("engine").WithDeploymentID(name),
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
	}
	if err := env.validateMappings(); err != nil {
		return nil, err
	}
	env.log.Debug("operation mappings validated")
	return env, nil
}

// Name returns the deployment name.
func (e *Environment) Name() string { return e.name }

// Storage returns the instance store backing this environment.
func (e *Environment) Storage() storage.Storage { return e.storage }

// validateMappings eagerly resolves every operation descriptor in the plan:
// each node's own operations and both sides of every relationship, at
// template and instance level.
func (e *Environment) validateMappings() error {
	for _, node := range e.plan.Nodes {
		if err := e.resolveOperations(node.ID, "operations", node.Operations); err != nil {
			return err
		}
		if err := e.resolveRelationships(node.ID, node.Relationships); err != nil {
			return err
		}
	}
	for _, instance := range e.plan.NodeInstances {
		if err := e.resolveRelationships(instance.NodeID, instance.Relationships); err != nil {
			return err
		}
	}
	return nil
}

func (e *Environment) resolveRelationships(nodeID string, rels []plan.Relationship) error {
	for _, rel := range rels {
		if err := e.resolveOperations(nodeID, "source_operations", rel.SourceOperations); err != nil {
			return err
		}
		if err := e.resolveOperations(nodeID, "target_operations", rel.TargetOperations); err != nil {
			return err
		}
	}
	return nil
}

func (e *Environment) resolveOperations(nodeID, kind string, ops map[string]plan.Operation) error {
	for _, op := range ops {
		if _, err := e.resolver.Resolve(op.Implementation); err != nil {
			return NewConfigurationError(
				fmt.Sprintf("unresolved operation mapping %q", op.Implementation), err).
				WithNode(nodeID).
				WithOperation(kind)
		}
	}
	return nil
}

// Execute runs a named workflow to completion. The call is synchronous; any
// parallelism across node operations happens inside the workflow
// implementation, bounded by the options forwarded in the execution context.
func (e *Environment) Execute(ctx context.Context, workflowName string, parameters map[string]any, opts ExecuteOptions) error {
	wf, ok := e.plan.Workflows[workflowName]
	if !ok {
		names := make([]string, 0, len(e.plan.Workflows))
		for name := range e.plan.Workflows {
			names = append(names, name)
		}
		sort.Strings(names)
		return NewNotFoundError(fmt.Sprintf(
			"workflow %q does not exist; existing workflows: %s",
			workflowName, strings.Join(names, ", ")))
	}

	fn, err := e.resolver.Resolve(wf.Operation.Implementation)
	if err != nil {
		return NewConfigurationError(
			fmt.Sprintf("unresolved workflow mapping %q", wf.Operation.Implementation), err).
			WithOperation("workflow")
	}

	merged, err := mergeExecutionParameters(workflowName, wf, parameters, opts.AllowCustomParameters)
	if err != nil {
		return err
	}

	executionID := uuid.New().String()
	log := e.log.WithWorkflowID(workflowName).WithExecutionID(executionID)
	tctx := &Context{
		Local:              true,
		DeploymentID:       e.name,
		BlueprintID:        e.name,
		ExecutionID:        executionID,
		WorkflowID:         workflowName,
		Storage:            e.storage,
		TaskRetries:        opts.TaskRetries,
		TaskRetryInterval:  opts.TaskRetryInterval,
		TaskThreadPoolSize: opts.TaskThreadPoolSize,
		Logger:             log,
	}

	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "workflow.execute",
			attribute.String("deployment_id", e.name),
			attribute.String("workflow_id", workflowName),
			attribute.String("execution_id", executionID))
		defer span.End()
	}

	e.metrics.ExecutionStarted(workflowName)
	log.Info("starting workflow execution")
	start := time.Now()

	err = fn(ctx, tctx, merged)
	duration := time.Since(start)
	if err != nil {
		e.metrics.ExecutionCompleted(workflowName, "failed", duration)
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "workflow execution failed")
		}
		log.WithError(err).Error("workflow execution failed")
		return err
	}

	e.metrics.ExecutionCompleted(workflowName, "succeeded", duration)
	log.WithField("duration", duration.String()).Info("workflow execution succeeded")
	return nil
}

// Outputs resolves the plan's deployment outputs against current instance
// state. Literal values pass through unchanged; get_attribute expressions
// are replaced by the ordered list of that attribute across the named
// node's instances. Instances are fetched once per call.
func (e *Environment) Outputs() (map[string]any, error) {
	outputs := plan.CopyProperties(e.plan.Outputs)

	var instances []*plan.NodeInstance
	var scanErr error
	scanProperties(outputs, func(v any) (any, bool) {
		fn := parseFunction(v)
		if fn == nil || scanErr != nil {
			return nil, false
		}
		if instances == nil {
			if instances, scanErr = e.storage.GetNodeInstances(); scanErr != nil {
				return nil, false
			}
		}
		attributes := make([]any, 0)
		for _, instance := range instances {
			if instance.NodeID != fn.NodeName {
				continue
			}
			attributes = append(attributes, instance.RuntimeProperties[fn.AttributeName])
		}
		return attributes, true
	})
	if scanErr != nil {
		return nil, scanErr
	}
	return outputs, nil
}
