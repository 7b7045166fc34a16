package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"protect-cli/internal/client"
	"protect-cli/internal/config"
	"protect-cli/internal/logging"
)

var cfgFile string
var jsonOutput bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "protect-cli",
	Short: "A CLI for interacting with UniFi Protect controllers",
	Long: `Manage cameras and stream realtime events from a UniFi Protect
controller, whether it runs the unified OS or the legacy NVR firmware.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		config.InitConfig(cfgFile)
		if err := logging.InitializeFromEnv(); err != nil {
			fmt.Println(err)
		}
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.protect-cli.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

// setupClient builds a controller client from the saved configuration.
// Sessions are never persisted, so every invocation authenticates fresh.
func setupClient(hooks client.Hooks) *client.ProtectClient {
	address := viper.GetString("address")
	username := viper.GetString("username")
	password := viper.GetString("password")

	if address == "" || username == "" || password == "" {
		fmt.Println("Error: Not configured. Please run 'protect-cli login' first.")
		os.Exit(1)
	}

	return client.New(client.ClientConfig{
		Address:  address,
		Username: username,
		Password: password,
		Hooks:    hooks,
		Logger:   logging.GetLogger(),
	})
}
