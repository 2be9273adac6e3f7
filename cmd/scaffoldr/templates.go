package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scaffoldr/internal/templates"
)

func newTemplatesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage templates used by static-files generators",
	}
	cmd.AddCommand(
		newTemplatesExtractCommand(a),
		newTemplatesGenerateCommand(a),
		newTemplatesListCommand(a),
		newTemplatesDeleteCommand(a),
	)
	return cmd
}

// templatesRoot is the templates directory resolved against the working
// directory. Templates commands do not need a project definition.
func (a *app) templatesRoot() (string, error) {
	root, err := filepath.Abs(a.opts.Directory)
	if err != nil {
		return "", err
	}
	return resolvePath(root, a.opts.TemplatesDir), nil
}

func newTemplatesExtractCommand(a *app) *cobra.Command {
	var opts templates.ExtractOptions
	cmd := &cobra.Command{
		Use:   "extract NAME [SOURCE_DIR]",
		Short: "Copy a directory into a named template",
		Example: `  # Turn the current web app into a reusable template
  scaffoldr templates extract web-app ./apps/web --description "Vite web app"`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.templatesRoot()
			if err != nil {
				return err
			}
			src := a.opts.Directory
			if len(args) == 2 {
				src = args[1]
			}
			opts.Include = a.opts.Include
			opts.Ignore = a.opts.Ignore
			t, err := templates.Extract(dir, args[0], src, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted template %s (%d files)\n", t.Name, len(t.Files))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Description, "description", "", "Description stored in the templates index")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Replace an existing template of the same name")
	return cmd
}

func newTemplatesGenerateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:           "generate",
		Short:         "Rebuild the templates index from the template directories present",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := a.templatesRoot()
			if err != nil {
				return err
			}
			ix, err := templates.Generate(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d templates in %s\n", len(ix.Templates), dir)
			return nil
		},
	}
}

func newTemplatesListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Aliases:       []string{"ls"},
		Short:         "List indexed templates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := a.templatesRoot()
			if err != nil {
				return err
			}
			ix, err := templates.List(dir)
			if err != nil {
				return err
			}
			if len(ix.Templates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No templates.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFILES\tDESCRIPTION")
			for _, t := range ix.Templates {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Name, len(t.Files), t.Description)
			}
			return tw.Flush()
		},
	}
}

func newTemplatesDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:           "delete NAME",
		Aliases:       []string{"rm"},
		Short:         "Delete a template and its index entry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.templatesRoot()
			if err != nil {
				return err
			}
			if err := templates.Delete(dir, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %s\n", args[0])
			return nil
		},
	}
}
