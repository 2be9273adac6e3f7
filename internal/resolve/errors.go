package resolve

import (
	"fmt"
	"strings"

	"scaffoldr/internal/capability"
)

func describeExport(capName, exportName string) string {
	if exportName == "" {
		return capName
	}
	return capName + ":" + exportName
}

// MissingProviderError reports a required dependency with no visible export.
type MissingProviderError struct {
	TaskID     string
	Dependency string
	Capability string
	ExportName string
}

func (e *MissingProviderError) Error() string {
	return fmt.Sprintf("task %s: dependency %q: no provider of %s in scope",
		e.TaskID, e.Dependency, describeExport(e.Capability, e.ExportName))
}

func (e *MissingProviderError) Unwrap() error { return capability.ErrConfiguration }

// UnresolvedReferenceError reports an explicit reference whose target node
// does not export the capability.
type UnresolvedReferenceError struct {
	TaskID     string
	Dependency string
	Capability string
	ExportName string
	TargetID   string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("task %s: dependency %q: node %s does not export %s",
		e.TaskID, e.Dependency, e.TargetID, describeExport(e.Capability, e.ExportName))
}

func (e *UnresolvedReferenceError) Unwrap() error { return capability.ErrConfiguration }

// DuplicateProviderError reports more than one export visible in the slot a
// dependency resolved to.
type DuplicateProviderError struct {
	TaskID     string
	Dependency string
	ExportID   string
	Providers  []string
}

func (e *DuplicateProviderError) Error() string {
	return fmt.Sprintf("task %s: dependency %q: %s is provided by %s; use an explicit reference",
		e.TaskID, e.Dependency, e.ExportID, strings.Join(e.Providers, ", "))
}

func (e *DuplicateProviderError) Unwrap() error { return capability.ErrConfiguration }

// DuplicateHoistedProviderError reports two descendants hoisting the same
// export to one ancestor.
type DuplicateHoistedProviderError struct {
	Capability   string
	ExportName   string
	HoistNodeID  string
	FirstTaskID  string
	SecondTaskID string
}

func (e *DuplicateHoistedProviderError) Error() string {
	return fmt.Sprintf("node %s hoists %s from both %s and %s",
		e.HoistNodeID, describeExport(e.Capability, e.ExportName), e.FirstTaskID, e.SecondTaskID)
}

func (e *DuplicateHoistedProviderError) Unwrap() error { return capability.ErrConfiguration }
