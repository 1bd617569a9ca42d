package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/runboard/internal/terminal"
)

// Output formats of the list command.
const (
	formatTable = "table"
	formatJSON  = "json"
)

var errFetchFailed = errors.New("workflow runs could not be fetched")

type listOptions struct {
	page   int
	format string
	strict bool
}

func newListCmd(c *cli) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "Print one page of workflow runs, newest first",
		Args:    cobra.NoArgs,
		PreRunE: c.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, c, opts)
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&opts.page, "page", "p", 1, "page to print; out of range pages are clamped")
	flags.StringVar(&opts.format, "format", formatTable, "output format (table|json)")
	flags.BoolVar(&opts.strict, "strict", false, "exit non-zero when the runs could not be fetched")
	return cmd
}

func runList(cmd *cobra.Command, c *cli, opts *listOptions) error {
	format := strings.ToLower(opts.format)
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unsupported format %q", opts.format)
	}

	view := c.svc.Dashboard(cmd.Context(), opts.page)
	out := cmd.OutOrStdout()

	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return err
		}
	default:
		terminal.Render(out, view, terminal.StylesFor(out))
	}

	if opts.strict && view.Error != "" {
		return errFetchFailed
	}
	return nil
}
