package cli

import (
	"github.com/spf13/cobra"

	"github.com/ksyq12/pleskcert/internal/configurator"
	"github.com/ksyq12/pleskcert/internal/output"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "List the domain names hosted on the panel",
	Long: `List the names of all webspaces and sites known to Plesk.

Names are shown in their ASCII form, as used for certificates, next to the
Unicode form of internationalized names.

Examples:
  pleskcert names
  pleskcert names --json`,
	Args: cobra.NoArgs,
	RunE: runNames,
}

func init() {
	rootCmd.AddCommand(namesCmd)
}

type nameItem struct {
	Domain  string `json:"domain"`
	Display string `json:"display"`
}

func runNames(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.configurator.Close()

	names, err := s.configurator.AllDomainNames()
	if err != nil {
		return err
	}

	items := make([]nameItem, 0, len(names))
	for _, n := range names {
		items = append(items, nameItem{Domain: n, Display: configurator.DisplayName(n)})
	}

	if jsonOutput {
		return output.JSON(items)
	}
	if len(items) == 0 {
		output.Info("No domains found")
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Domain, it.Display})
	}
	output.Table([]string{"DOMAIN", "DISPLAY"}, rows)
	return nil
}
