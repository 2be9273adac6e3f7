package generators

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/generator"
	"scaffoldr/internal/output"
	"scaffoldr/internal/project"
	"scaffoldr/internal/sortutil"
	"scaffoldr/internal/templates"
	"scaffoldr/internal/textutil"
)

// templateSuffix marks template-directory files that are rendered; the
// suffix is dropped from the output path.
const templateSuffix = ".tmpl"

type staticFilesOptions struct {
	// Files are inline templates keyed by output path.
	Files map[string]string `yaml:"files"`
	// Template names an extracted template to copy.
	Template        string            `yaml:"template"`
	Target          string            `yaml:"target"`
	Data            map[string]any    `yaml:"data"`
	NeverOverwrite  bool              `yaml:"neverOverwrite"`
	Format          bool              `yaml:"format"`
	Dependencies    map[string]string `yaml:"dependencies"`
	DevDependencies map[string]string `yaml:"devDependencies"`
}

// TemplateData is what inline and .tmpl templates are rendered with.
type TemplateData struct {
	Project string
	Package string
	Node    string
	// PackageName is the node-package name, empty without one.
	PackageName string
	Data        map[string]any
}

var funcs = template.FuncMap{
	"lower":    strings.ToLower,
	"upper":    strings.ToUpper,
	"trimPath": func(s string) string { return strings.Trim(s, "/") },
}

func (c *catalogue) staticFilesTasks(env project.Env, raw *yaml.Node) ([]*generator.Task, error) {
	var opts staticFilesOptions
	if err := project.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	if len(opts.Files) == 0 && opts.Template == "" {
		return nil, fmt.Errorf("static-files needs files or a template")
	}
	// Parse inline templates up front so syntax errors surface before any
	// task runs.
	inline := make(map[string]*template.Template, len(opts.Files))
	for p, body := range opts.Files {
		t, err := template.New(p).Funcs(funcs).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse inline file %s: %w", p, err)
		}
		inline[p] = t
	}

	run := func(_ context.Context, deps generator.Providers) (*generator.TaskResult, error) {
		pkg, hasPkg := generator.Lookup[*NodePackage](deps, "package")
		data := TemplateData{
			Project: env.ProjectName,
			Package: env.PackageName,
			Node:    env.NodeID,
			Data:    opts.Data,
		}
		if hasPkg {
			data.PackageName = pkg.Name
			for name, v := range opts.Dependencies {
				pkg.AddDependency(name, v)
			}
			for name, v := range opts.DevDependencies {
				pkg.AddDevDependency(name, v)
			}
		} else if len(opts.Dependencies)+len(opts.DevDependencies) > 0 {
			return nil, fmt.Errorf("dependencies need a node-package ancestor")
		}

		return &generator.TaskResult{
			Build: func(_ context.Context, b *output.Builder) error {
				if hasPkg {
					data.PackageName = pkg.Name
				}
				files, err := c.renderStatic(env, opts, inline, data)
				if err != nil {
					return err
				}
				wo := output.WriteOptions{ShouldFormat: opts.Format, NeverOverwrite: opts.NeverOverwrite}
				for _, p := range sortutil.SortedKeys(files) {
					fo := wo
					if textutil.IsBinary(files[p]) {
						fo.ShouldFormat = false
					}
					if err := b.WriteFile(env.NodeID, path.Join(opts.Target, p), files[p], fo); err != nil {
						return err
					}
				}
				return nil
			},
		}, nil
	}

	return []*generator.Task{{
		Name:         generator.DefaultTaskName,
		Dependencies: map[string]capability.Dependency{"package": c.nodePackage.Dependency().Optional()},
		Run:          run,
	}}, nil
}

func (c *catalogue) renderStatic(env project.Env, opts staticFilesOptions, inline map[string]*template.Template, data TemplateData) (map[string][]byte, error) {
	out := make(map[string][]byte)
	if opts.Template != "" {
		files, err := templates.Files(env.TemplatesDir, opts.Template)
		if err != nil {
			return nil, err
		}
		for rel, body := range files {
			if !strings.HasSuffix(rel, templateSuffix) || textutil.IsBinary(body) {
				out[rel] = body
				continue
			}
			t, err := template.New(rel).Funcs(funcs).Option("missingkey=error").Parse(string(body))
			if err != nil {
				return nil, fmt.Errorf("parse template file %s: %w", rel, err)
			}
			rendered, err := execute(t, data)
			if err != nil {
				return nil, err
			}
			out[strings.TrimSuffix(rel, templateSuffix)] = rendered
		}
	}
	for p, t := range inline {
		rendered, err := execute(t, data)
		if err != nil {
			return nil, err
		}
		// Inline files override template files of the same path.
		out[p] = rendered
	}
	return out, nil
}

func execute(t *template.Template, data TemplateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}
