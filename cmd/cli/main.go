package main

import (
	"log"

	"github.com/absmach/flcoord/cli"
	"github.com/absmach/flcoord/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flcoord-cli",
		Short: "Federated learning coordinator CLI",
		Long:  `flcoord-cli drives training rounds and fetches checkpoints from a running coordinator.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				CoordinatorURL:  cli.DefCoordinatorURL,
				TLSVerification: cli.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(
		&cli.DefCoordinatorURL,
		"coordinator-url",
		"c",
		cli.DefCoordinatorURL,
		"Coordinator URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&cli.DefTLSVerification,
		"tls-verification",
		"v",
		cli.DefTLSVerification,
		"TLS Verification",
	)

	rootCmd.AddCommand(cli.NewClientsCmd())
	rootCmd.AddCommand(cli.NewRoundsCmd())
	rootCmd.AddCommand(cli.NewCheckpointCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
