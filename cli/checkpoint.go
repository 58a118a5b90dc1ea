package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

const filePermission = 0o644

var (
	checkpointFormat = "json"
	outputPath       string
)

func NewCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint [get]",
		Short: "Model checkpoints",
		Long:  `Fetch aggregated model checkpoints.`,
	}

	getCmd := &cobra.Command{
		Use:   "get [round]",
		Short: "Get checkpoint",
		Long: `Get the checkpoint of a round, or the latest one.

Examples:
  # Show the latest checkpoint
  flcoord-cli checkpoint get

  # Save the round 3 checkpoint as CBOR
  flcoord-cli checkpoint get 3 --format cbor --output round3.cbor`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			var round *uint64
			if len(args) == 1 {
				r, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				round = &r
			}

			if outputPath == "" && checkpointFormat == "json" {
				cp, err := flsdk.GetCheckpoint(round)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logJSONCmd(*cmd, cp)

				return
			}

			data, err := flsdk.ExportCheckpoint(round, checkpointFormat)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if outputPath == "" {
				_, _ = cmd.OutOrStdout().Write(data)

				return
			}
			if err := os.WriteFile(outputPath, data, filePermission); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Checkpoint written to "+outputPath)
		},
	}

	getCmd.Flags().StringVarP(&checkpointFormat, "format", "f", checkpointFormat, "Checkpoint format (json or cbor)")
	getCmd.Flags().StringVarP(&outputPath, "output", "O", "", "Write the checkpoint to a file")

	cmd.AddCommand(getCmd)

	return cmd
}
