package engine

import (
	"time"

	"github.com/funkyHat/orchard/pkg/storage"
	"github.com/funkyHat/orchard/pkg/telemetry"
)

// DefaultTaskThreadPoolSize is the default size of the local task thread
// pool a workflow implementation may run node operations on.
const DefaultTaskThreadPoolSize = 8

// Context is the execution context handed to a workflow implementation. It
// is the sole contract between the dispatch engine and externally-supplied
// workflow and operation code.
type Context struct {
	// Local is always true for this engine: execution happens in-process
	// against local storage.
	Local bool `json:"local"`

	// DeploymentID identifies the deployment being executed against.
	DeploymentID string `json:"deployment_id"`

	// BlueprintID identifies the blueprint the deployment was compiled
	// from. Locally this equals the deployment id.
	BlueprintID string `json:"blueprint_id"`

	// ExecutionID is the fresh id generated for this execution.
	ExecutionID string `json:"execution_id"`

	// WorkflowID is the name of the workflow being executed.
	WorkflowID string `json:"workflow_id"`

	// Storage is the instance store the workflow reads and writes node
	// instance state through.
	Storage storage.Storage `json:"-"`

	// TaskRetries is how many times a failed task is retried; -1 means
	// retry forever. Consumed by the workflow implementation, not
	// interpreted by the engine.
	TaskRetries int `json:"task_retries"`

	// TaskRetryInterval is the wait between task retries.
	TaskRetryInterval time.Duration `json:"task_retry_interval"`

	// TaskThreadPoolSize is the size of the local task pool the workflow
	// implementation may parallelize node operations on.
	TaskThreadPoolSize int `json:"task_thread_pool_size"`

	// Logger is a structured logger scoped to this execution.
	Logger *telemetry.Logger `json:"-"`
}

// ExecuteOptions tune a single workflow execution.
type ExecuteOptions struct {
	// AllowCustomParameters lets caller-supplied parameters not declared
	// by the workflow pass through instead of failing validation.
	AllowCustomParameters bool

	// TaskRetries is forwarded to the execution context; -1 retries
	// forever.
	TaskRetries int

	// TaskRetryInterval is forwarded to the execution context.
	TaskRetryInterval time.Duration

	// TaskThreadPoolSize is forwarded to the execution context.
	TaskThreadPoolSize int
}

// DefaultExecuteOptions returns the option set used when the caller has no
// opinion: retry forever, 30 seconds apart, on the default pool size.
func DefaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{
		TaskRetries:        -1,
		TaskRetryInterval:  30 * time.Second,
		TaskThreadPoolSize: DefaultTaskThreadPoolSize,
	}
}
