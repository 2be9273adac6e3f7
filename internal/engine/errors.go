package engine

import (
	"fmt"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/graph"
)

// CyclicalDependencyError reports a dependency cycle between tasks. Path
// starts and ends on the same task id.
type CyclicalDependencyError struct {
	Path []string
}

func (e *CyclicalDependencyError) Error() string {
	return "cyclical task dependency: " + graph.FormatPath(e.Path)
}

func (e *CyclicalDependencyError) Unwrap() []error {
	return []error{capability.ErrConfiguration, graph.ErrCycle}
}

// MissingExportError reports a task whose run did not return a provider for
// one of its declared exports.
type MissingExportError struct {
	TaskID     string
	ExportName string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("task %s declares export %q but returned no provider for it", e.TaskID, e.ExportName)
}

func (e *MissingExportError) Unwrap() error { return capability.ErrConfiguration }

// Phase names the callback a TaskError came from.
type Phase string

const (
	PhaseRun   Phase = "run"
	PhaseBuild Phase = "build"
)

// TaskError wraps a failure raised by a task callback.
type TaskError struct {
	TaskID string
	NodeID string
	Phase  Phase
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (node %s) failed during %s: %v", e.TaskID, e.NodeID, e.Phase, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
