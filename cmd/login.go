package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"protect-cli/internal/client"
	"protect-cli/internal/config"
	"protect-cli/internal/logging"
)

// Variables to hold flag values
var (
	loginAddress  string
	loginUser     string
	loginPassword string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify credentials against the controller",
	Long: `Detects the controller's firmware family, authenticates with the
provided credentials, and saves the address and credentials locally for
future commands. Sessions themselves are never saved; each invocation
logs in fresh.

Example:
  protect-cli login --address 192.168.1.1 --username viewer --password secret`,
	Run: func(cmd *cobra.Command, args []string) {
		// Clean up input (no scheme, no trailing slash).
		address := strings.TrimRight(strings.TrimPrefix(strings.TrimPrefix(loginAddress, "https://"), "http://"), "/")

		api := client.New(client.ClientConfig{
			Address:  address,
			Username: loginUser,
			Password: loginPassword,
			Logger:   logging.GetLogger(),
		})

		fmt.Printf("Authenticating against %s as user '%s'...\n", address, loginUser)

		if err := api.Login(); err != nil {
			log.Fatalf("Fatal: Login failed: %v", err)
		}

		fmt.Printf("Login successful (%s controller).\n", api.Family())

		if err := config.SaveController(address, loginUser, loginPassword); err != nil {
			log.Fatalf("Failed to save configuration file: %v", err)
		}

		fmt.Println("Controller saved. You can now run commands like './protect-cli devices list'.")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginAddress, "address", "", "Controller address (e.g. 192.168.1.1)")
	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "Controller username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Controller password")

	_ = loginCmd.MarkFlagRequired("address")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
}
