package generator

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/sortutil"
)

var errStopWalk = errors.New("stop walk")

// TreeError reports a structural defect in a node tree.
type TreeError struct {
	NodeID string
	TaskID string
	Reason string
}

func (e *TreeError) Error() string {
	switch {
	case e.TaskID != "":
		return fmt.Sprintf("task %s: %s", e.TaskID, e.Reason)
	case e.NodeID != "":
		return fmt.Sprintf("node %s: %s", e.NodeID, e.Reason)
	default:
		return e.Reason
	}
}

func (e *TreeError) Unwrap() error { return capability.ErrConfiguration }

// Validate checks the structural invariants the resolver relies on: unique
// non-empty node ids, unique task names per node, no '#' in ids, a run
// function per task, and export keys that name a capability. All problems are
// reported together.
func Validate(root *Node) error {
	if root == nil {
		return &TreeError{Reason: "nil root node"}
	}
	var errs error
	seen := make(map[*Node]struct{})
	ids := make(map[string]struct{})
	_ = Walk(root, func(n, _ *Node) error {
		if _, again := seen[n]; again {
			errs = multierr.Append(errs, &TreeError{NodeID: n.ID, Reason: "node appears twice in the tree"})
			// A node reachable twice may be its own ancestor; stop here.
			return errStopWalk
		}
		seen[n] = struct{}{}
		switch {
		case n.ID == "":
			errs = multierr.Append(errs, &TreeError{Reason: "node without id"})
		case strings.Contains(n.ID, "#"):
			errs = multierr.Append(errs, &TreeError{NodeID: n.ID, Reason: "node id must not contain '#'"})
		default:
			if _, dup := ids[n.ID]; dup {
				errs = multierr.Append(errs, &TreeError{NodeID: n.ID, Reason: "duplicate node id"})
			}
			ids[n.ID] = struct{}{}
		}
		names := make(map[string]struct{}, len(n.Tasks))
		for _, t := range n.Tasks {
			if t == nil {
				errs = multierr.Append(errs, &TreeError{NodeID: n.ID, Reason: "nil task"})
				continue
			}
			id := TaskID(n, t)
			if t.Name == "" || strings.Contains(t.Name, "#") {
				errs = multierr.Append(errs, &TreeError{TaskID: id, Reason: "task name must be non-empty and must not contain '#'"})
			}
			if _, dup := names[t.Name]; dup {
				errs = multierr.Append(errs, &TreeError{TaskID: id, Reason: "duplicate task name"})
			}
			names[t.Name] = struct{}{}
			if t.Run == nil {
				errs = multierr.Append(errs, &TreeError{TaskID: id, Reason: "task has no run function"})
			}
			for _, depName := range sortutil.SortedKeys(t.Dependencies) {
				if t.Dependencies[depName].Type() == nil {
					errs = multierr.Append(errs, &TreeError{TaskID: id, Reason: fmt.Sprintf("dependency %q has no capability type", depName)})
				}
			}
			for _, expName := range sortutil.SortedKeys(t.Exports) {
				if t.Exports[expName].Type() == nil {
					errs = multierr.Append(errs, &TreeError{TaskID: id, Reason: fmt.Sprintf("export %q has no capability type", expName)})
				}
			}
		}
		return nil
	})
	return errs
}
