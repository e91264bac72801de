package cli

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func NewAnalyzersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyzers",
		Short: "List the artifact names the registry recognizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}

			data := pterm.TableData{{"Artifact", "Analyzer"}}
			for _, e := range reg.Entries() {
				data = append(data, []string{e.Artifact, e.Kind()})
			}
			return pterm.DefaultTable.
				WithHasHeader().
				WithWriter(cmd.OutOrStdout()).
				WithData(data).
				Render()
		},
	}
}
