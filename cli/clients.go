package cli

import "github.com/spf13/cobra"

func NewClientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients [list]",
		Short: "Connected clients",
		Long:  `List clients holding a live connection to the coordinator.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Long:  `List clients holding a live connection.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			cl, err := flsdk.ListClients()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, cl)
		},
	}

	cmd.AddCommand(listCmd)

	return cmd
}
