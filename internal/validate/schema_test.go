package validate

import (
	"strings"
	"testing"

	"scaffoldr/internal/project"
)

func TestValidProject(t *testing.T) {
	p := &project.Project{
		Name: "shop",
		Packages: []project.Package{
			{Name: "web", Directory: "packages/web", Root: project.NodeSpec{
				Generator: "node-package",
				Hoist:     []string{"node-package"},
				Children: []project.NodeSpec{
					{Name: "lint", Generator: "script"},
					{Generator: "static-files"},
				},
			}},
			{Name: "api", Directory: "packages/api", Root: project.NodeSpec{Generator: "node-package"}},
		},
	}
	if err := Project(p, []string{"node-package", "script", "static-files"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProjectAggregatesIssues(t *testing.T) {
	p := &project.Project{
		Packages: []project.Package{
			{Name: "web", Directory: "../escape", Root: project.NodeSpec{
				Generator: "mystery",
				Hoist:     []string{"Bad_Name"},
				Children: []project.NodeSpec{
					{Name: "a.b", Generator: "script"},
					{Name: "dup", Generator: "script"},
					{Name: "dup", Generator: ""},
				},
			}},
			{Name: "web", Directory: "/abs", Root: project.NodeSpec{Generator: "script"}},
			{Name: "Other", Directory: `win\dir`, Root: project.NodeSpec{Generator: "script"}},
		},
	}
	err := Project(p, []string{"script"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{
		"project.name must be non-empty",
		"must not contain '..'",
		`unknown generator "mystery"`,
		`"Bad_Name" is not a valid capability name`,
		"must not contain '.' or '#'",
		`duplicate sibling name "dup"`,
		"generator must be non-empty",
		`duplicate package name "web"`,
		"directory must be relative",
		"found backslash",
		"packages[2] (Other): name must match",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing %q in:\n%s", want, msg)
		}
	}
}

func TestSharedDirectory(t *testing.T) {
	p := &project.Project{
		Name: "x",
		Packages: []project.Package{
			{Name: "a", Root: project.NodeSpec{Generator: "script"}},
			{Name: "b", Directory: "./", Root: project.NodeSpec{Generator: "script"}},
		},
	}
	err := Project(p, nil)
	if err == nil || !strings.Contains(err.Error(), `already used by package "a"`) {
		t.Fatalf("expected shared directory error, got %v", err)
	}
}
