package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"protect-cli/internal/client"
	"protect-cli/pkg/models"
)

var watchInterval time.Duration

// lineEmitter serializes event lines onto one writer. Hooks fire from
// whichever goroutine triggered them — the realtime listener's read loop
// and the refresh ticker both emit — so writes must be guarded.
type lineEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineEmitter(w io.Writer) *lineEmitter {
	return &lineEmitter{enc: json.NewEncoder(w)}
}

func (e *lineEmitter) Emit(kind string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.enc.Encode(map[string]any{"kind": kind, "at": time.Now().UTC().Format(time.RFC3339), "data": v})
}

// watchCmd streams realtime controller events to stdout as JSON lines.
// The periodic refresh is what drives reconnection: if the event feed dies,
// the next cycle re-establishes it.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream realtime events from the controller",
	Long: `Connects to the controller, keeps the device inventory synchronized,
and prints realtime events as JSON lines until interrupted. Legacy
controllers have no event feed; only inventory changes are reported.`,
	Run: func(cmd *cobra.Command, args []string) {
		emitter := newLineEmitter(os.Stdout)

		api := setupClient(client.Hooks{
			Connected:        func(nvr models.NVR) { emitter.Emit("connected", nvr) },
			DeviceDiscovered: func(cam models.Camera) { emitter.Emit("discovered", cam) },
			DeviceRemoved:    func(cam models.Camera) { emitter.Emit("removed", cam) },
			RoleChanged:      func(admin bool) { emitter.Emit("role_changed", admin) },
			Update:           func(upd models.Update) { emitter.Emit("update", upd) },
		})
		defer api.Shutdown()

		if err := api.RefreshDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: initial refresh failed: %v\n", err)
			os.Exit(1)
		}

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case <-ticker.C:
				// Failures here are throttled and retried next tick.
				if err := api.RefreshDevices(); err != nil {
					fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
				}
			case <-sigs:
				return
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Inventory refresh interval")
}
