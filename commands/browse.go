package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/CaioMussatto/Cacaio-docker/tui"
)

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <snapshot>",
		Short: "Browse a saved snapshot in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := tui.NewModel(args[0], a.cfg.Ranking.TopN, a.version)
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
