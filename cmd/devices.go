package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"protect-cli/internal/client"
	"protect-cli/pkg/models"
)

// Variables to hold flag values
var (
	deviceMAC    string
	patchPayload string
)

// Parent Command
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage cameras",
	Long:  `List the controller's camera inventory, enable RTSP, or patch camera configuration.`,
}

// findByMAC locates a camera in the refreshed inventory.
func findByMAC(api *client.ProtectClient, mac string) models.Camera {
	for _, cam := range api.Cameras() {
		if strings.EqualFold(cam.MAC, mac) {
			return cam
		}
	}
	fmt.Printf("Error: no camera with MAC %s\n", mac)
	os.Exit(1)
	return models.Camera{}
}

// List Command
var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cameras",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient(client.Hooks{})
		defer api.Shutdown()

		if err := api.RefreshDevices(); err != nil {
			fmt.Printf("Error fetching devices: %v\n", err)
			os.Exit(1)
		}
		cameras := api.Cameras()

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cameras); err != nil {
				fmt.Printf("Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}
		// -------------------

		if nvr, ok := api.NVRInfo(); ok {
			fmt.Printf("Controller: %s (%s, v%s) — admin: %v\n\n", nvr.Name, api.Family(), nvr.Version, api.IsAdmin())
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODEL\tMAC\tHOST\tSTATE\tMANAGED\tRTSP")
		fmt.Fprintln(w, "----\t-----\t---\t----\t-----\t-------\t----")

		for _, cam := range cameras {
			rtsp := "partial"
			if cam.AllChannelsRTSPEnabled() {
				rtsp = "on"
			} else {
				enabled := 0
				for _, ch := range cam.Channels {
					if ch.IsRTSPEnabled {
						enabled++
					}
				}
				if enabled == 0 {
					rtsp = "off"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\t%s\n",
				cam.Name,
				cam.Type,
				cam.MAC,
				cam.Host,
				cam.State,
				cam.IsManaged,
				rtsp,
			)
		}
		w.Flush()
	},
}

// RTSP Command
var devicesRTSPCmd = &cobra.Command{
	Use:     "rtsp",
	Short:   "Enable RTSP on every channel of a camera",
	Example: `  protect-cli devices rtsp --mac "aa:bb:cc:dd:ee:01"`,
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient(client.Hooks{})
		defer api.Shutdown()

		if err := api.RefreshDevices(); err != nil {
			fmt.Printf("Error fetching devices: %v\n", err)
			os.Exit(1)
		}

		device := findByMAC(api, deviceMAC)
		updated, err := api.EnableRTSP(device)
		if err != nil {
			fmt.Printf("Error enabling RTSP: %v\n", err)
			os.Exit(1)
		}

		for _, ch := range updated.Channels {
			state := "disabled"
			if ch.IsRTSPEnabled {
				state = "enabled"
			}
			alias := ch.RTSPAlias
			if alias == "" {
				alias = "-"
			}
			fmt.Printf("channel %d: %s (alias %s)\n", ch.ID, state, alias)
		}
	},
}

// Patch Command
var devicesPatchCmd = &cobra.Command{
	Use:     "patch",
	Short:   "Apply a partial configuration payload to a camera",
	Example: `  protect-cli devices patch --mac "aa:bb:cc:dd:ee:01" --body '{"name":"Front Porch"}'`,
	Run: func(cmd *cobra.Command, args []string) {
		var payload map[string]any
		if err := json.Unmarshal([]byte(patchPayload), &payload); err != nil {
			fmt.Printf("Error: --body is not valid JSON: %v\n", err)
			os.Exit(1)
		}

		api := setupClient(client.Hooks{})
		defer api.Shutdown()

		if err := api.RefreshDevices(); err != nil {
			fmt.Printf("Error fetching devices: %v\n", err)
			os.Exit(1)
		}

		device := findByMAC(api, deviceMAC)
		updated, err := api.UpdateCamera(device, payload)
		if err != nil {
			fmt.Printf("Error patching camera: %v\n", err)
			os.Exit(1)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(updated)
	},
}

func init() {
	// Register Parent
	rootCmd.AddCommand(devicesCmd)

	// Register Subcommands
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesRTSPCmd)
	devicesCmd.AddCommand(devicesPatchCmd)

	// Flags for RTSP
	devicesRTSPCmd.Flags().StringVar(&deviceMAC, "mac", "", "MAC address of the camera")
	_ = devicesRTSPCmd.MarkFlagRequired("mac")

	// Flags for Patch
	devicesPatchCmd.Flags().StringVar(&deviceMAC, "mac", "", "MAC address of the camera")
	devicesPatchCmd.Flags().StringVar(&patchPayload, "body", "", "JSON payload to apply")
	_ = devicesPatchCmd.MarkFlagRequired("mac")
	_ = devicesPatchCmd.MarkFlagRequired("body")
}
