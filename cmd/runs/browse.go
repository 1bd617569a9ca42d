package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/okian/runboard/internal/terminal"
)

func newBrowseCmd(c *cli) *cobra.Command {
	var altScreen bool
	cmd := &cobra.Command{
		Use:     "browse",
		Short:   "Page through workflow runs interactively",
		Args:    cobra.NoArgs,
		PreRunE: c.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			model := terminal.NewPagerModel(cmd.Context(), c.svc.Snapshot, c.svc.ItemsPerPage(), terminal.StylesFor(out))

			opts := []tea.ProgramOption{
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(out),
			}
			if altScreen {
				opts = append(opts, tea.WithAltScreen())
			}
			_, err := tea.NewProgram(model, opts...).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "draw in the alternate screen buffer")
	return cmd
}
