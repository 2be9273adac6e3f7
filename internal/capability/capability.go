// Package capability defines the typed contracts that generator tasks require
// (dependencies) and supply (exports).
//
// The three shapes are separate immutable values:
//   - Type: the capability itself, identified by a kebab-case name
//   - Dependency: a task's reference to a Type plus resolution options
//   - Export: a task's declaration that it supplies a Type, with one or more
//     (scope, export name) visibility pairs
//
// Builder methods always return a new value, so a Dependency or Export can be
// shared between tasks.
package capability

import (
	"regexp"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Type identifies something a task can require or supply.
type Type struct {
	name     string
	readOnly bool
}

// TypeOption customizes a Type at creation.
type TypeOption func(*Type)

// ReadOnly marks the capability as read-only: consumers only read the
// provider and never configure it.
func ReadOnly() TypeOption {
	return func(t *Type) { t.readOnly = true }
}

// NewType validates name and returns an immutable capability type.
func NewType(name string, opts ...TypeOption) (*Type, error) {
	if !namePattern.MatchString(name) {
		return nil, &InvalidNameError{Name: name}
	}
	t := &Type{name: name}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// MustType is NewType for package-level declarations; it panics on an
// invalid name.
func MustType(name string, opts ...TypeOption) *Type {
	t, err := NewType(name, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the capability name.
func (t *Type) Name() string { return t.name }

// IsReadOnly reports whether the capability was declared read-only.
func (t *Type) IsReadOnly() bool { return t.readOnly }

func (t *Type) String() string { return t.name }

// Dependency returns a required dependency on t resolved by upward search.
func (t *Type) Dependency() Dependency {
	return Dependency{typ: t}
}

// Export returns an export of t visible in scope under exportName. A nil scope
// registers the export at the declaring node.
func (t *Type) Export(scope *Scope, exportName string) Export {
	return Export{typ: t, pairs: []ExportPair{{Scope: scope, Name: exportName}}}
}

// Scope is a named visibility scope a generator node can declare. Exports
// bound to a scope become visible at the nearest enclosing node declaring it.
type Scope struct {
	name string
}

// NewScope returns a new scope. Scopes compare by identity, not by name.
func NewScope(name string) *Scope {
	return &Scope{name: name}
}

// Name returns the scope's descriptive name.
func (s *Scope) Name() string { return s.name }

// Dependency is a task's immutable reference to a capability Type.
type Dependency struct {
	typ             *Type
	optional        bool
	exportName      string
	parentScopeOnly bool
	reference       string
	hasReference    bool
}

// Type returns the referenced capability.
func (d Dependency) Type() *Type { return d.typ }

// IsOptional reports whether an unresolved dependency yields an absent value.
func (d Dependency) IsOptional() bool { return d.optional }

// ExportName returns the export name to match; empty matches the default export.
func (d Dependency) ExportName() string { return d.exportName }

// IsParentScopeOnly reports whether the search starts above the declaring node.
func (d Dependency) IsParentScopeOnly() bool { return d.parentScopeOnly }

// Target returns the explicit target node id, if any.
func (d Dependency) Target() (string, bool) { return d.reference, d.hasReference }

// Optional resolves to an absent value instead of failing when no provider
// is visible.
func (d Dependency) Optional() Dependency {
	d.optional = true
	return d
}

// Named matches exports registered under exportName instead of the default.
func (d Dependency) Named(exportName string) Dependency {
	d.exportName = exportName
	return d
}

// ParentScopeOnly begins the search one level above the declaring node. It
// lets a node depend on an ancestor instance of a capability it also exports.
func (d Dependency) ParentScopeOnly() Dependency {
	d.parentScopeOnly = true
	return d
}

// Reference forces resolution to the export registered at nodeID.
func (d Dependency) Reference(nodeID string) Dependency {
	d.reference = nodeID
	d.hasReference = true
	return d
}

// OptionalReference is Reference combined with Optional. An empty nodeID
// yields a plain optional dependency with no reference.
func (d Dependency) OptionalReference(nodeID string) Dependency {
	d.optional = true
	if nodeID == "" {
		d.reference = ""
		d.hasReference = false
		return d
	}
	return d.Reference(nodeID)
}

// ExportPair is one (scope, export name) visibility pair of an Export.
type ExportPair struct {
	Scope *Scope
	Name  string
}

// Export declares that a task supplies a capability.
type Export struct {
	typ   *Type
	pairs []ExportPair
}

// Type returns the exported capability.
func (e Export) Type() *Type { return e.typ }

// Pairs returns a copy of the visibility pairs.
func (e Export) Pairs() []ExportPair {
	out := make([]ExportPair, len(e.pairs))
	copy(out, e.pairs)
	return out
}

// AndExport adds another visibility pair.
func (e Export) AndExport(scope *Scope, exportName string) Export {
	pairs := make([]ExportPair, len(e.pairs), len(e.pairs)+1)
	copy(pairs, e.pairs)
	e.pairs = append(pairs, ExportPair{Scope: scope, Name: exportName})
	return e
}
