package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
)

var (
	useCBOR bool

	errInvalidParams = errors.New("params file must hold a JSON array or an object with a params array")
)

func NewRoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds [start|aggregate|status|submit]",
		Short: "Training rounds",
		Long:  `Start, aggregate and inspect training rounds, and submit updates.`,
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start round",
		Long:  `Select participants for the current round and notify them.`,
		Run: func(cmd *cobra.Command, _ []string) {
			r, err := flsdk.StartRound()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate round",
		Long:  `Close collection for the current round and write its checkpoint.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cp, err := flsdk.AggregateRound()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, fmt.Sprintf("Round %d aggregated from %d clients", cp.Round, len(cp.Clients)))
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Round status",
		Long:  `Show the current round number and controller state.`,
		Run: func(cmd *cobra.Command, _ []string) {
			s, err := flsdk.RoundStatus()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}

	submitCmd := &cobra.Command{
		Use:   "submit <client_id> <round> <params_file>",
		Short: "Submit update",
		Long: `Submit a parameter vector on behalf of a client.

Examples:
  # Submit params stored as a JSON array
  flcoord-cli rounds submit client-1 0 params.json

  # Submit the same params encoded as CBOR
  flcoord-cli rounds submit client-1 0 params.json --cbor`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 3 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			round, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			params, err := readParams(args[2])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			if useCBOR {
				data, err := cbor.Marshal(map[string][]float64{"params": params})
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				err = flsdk.SubmitUpdateCBOR(args[0], round, data)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logOKCmd(*cmd)

				return
			}

			if err := flsdk.SubmitUpdate(args[0], round, params); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	submitCmd.Flags().BoolVar(&useCBOR, "cbor", false, "Send the update CBOR encoded")

	cmd.AddCommand(startCmd)
	cmd.AddCommand(aggregateCmd)
	cmd.AddCommand(statusCmd)
	cmd.AddCommand(submitCmd)

	return cmd
}

func readParams(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var params []float64
	if err := json.Unmarshal(data, &params); err == nil {
		return params, nil
	}

	var wrapped struct {
		Params []float64 `json:"params"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil || wrapped.Params == nil {
		return nil, errInvalidParams
	}

	return wrapped.Params, nil
}
