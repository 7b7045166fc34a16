package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"protect-cli/internal/client"
	"protect-cli/internal/logging"
)

// Variables to hold flag values
var (
	expAddress    string
	expUser       string
	expPass       string
	expPort       string
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	exit   chan struct{}
	server *http.Server
	api    *client.ProtectClient
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	// An unreachable controller at startup is not fatal: the collector
	// keeps probing on every scrape, throttled by the client itself.
	log.Println("Attempting initial device refresh...")
	if err := p.api.RefreshDevices(); err != nil {
		log.Printf("Initial refresh failed (will keep retrying per scrape): %v", err)
	}

	registry := prometheus.NewRegistry()
	collector := &ProtectCollector{Client: p.api}
	registry.MustRegister(collector)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	addr := fmt.Sprintf(":%s", expPort)
	p.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Printf("Protect Exporter listening on %s", addr)

	if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("HTTP Server error: %v", err)
	}
}

func (p *program) Stop(s service.Service) error {
	// Stop should not block. Signal the app to stop.
	log.Println("Stopping service...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}
	p.api.Shutdown()
	close(p.exit)
	return nil
}

// --- COLLECTOR LOGIC ---

type ProtectCollector struct {
	Client *client.ProtectClient
	Mutex  sync.Mutex
}

var (
	upDesc = prometheus.NewDesc(
		"protect_up", "Was the last controller refresh successful.", nil, nil,
	)
	scrapeDurationDesc = prometheus.NewDesc(
		"protect_scrape_duration_seconds", "Time taken to refresh the controller.", nil, nil,
	)
	adminDesc = prometheus.NewDesc(
		"protect_account_admin", "Whether the account holds camera write permission.", nil, nil,
	)
	consecutiveErrorsDesc = prometheus.NewDesc(
		"protect_consecutive_errors", "Consecutive failed controller calls.", nil, nil,
	)
	eventFeedDesc = prometheus.NewDesc(
		"protect_event_feed_connected", "Whether the realtime event feed is up.", nil, nil,
	)
	cameraUpDesc = prometheus.NewDesc(
		"protect_camera_up", "Camera connection status.", []string{"mac", "name", "model", "host"}, nil,
	)
	cameraManagedDesc = prometheus.NewDesc(
		"protect_camera_managed", "Whether the controller manages the camera.", []string{"mac", "name"}, nil,
	)
	cameraRTSPDesc = prometheus.NewDesc(
		"protect_camera_rtsp_channels", "RTSP-enabled channels per camera.", []string{"mac", "name"}, nil,
	)
	cameraCountDesc = prometheus.NewDesc(
		"protect_cameras_total", "Total cameras grouped by state.", []string{"state"}, nil,
	)
)

func (c *ProtectCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- adminDesc
	ch <- consecutiveErrorsDesc
	ch <- eventFeedDesc
	ch <- cameraUpDesc
	ch <- cameraManagedDesc
	ch <- cameraRTSPDesc
	ch <- cameraCountDesc
}

func (c *ProtectCollector) Collect(ch chan<- prometheus.Metric) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	start := time.Now()
	success := 1.0

	if err := c.Client.RefreshDevices(); err != nil {
		// A throttled refresh still serves the previous snapshot below.
		success = 0.0
		log.Printf("Error refreshing controller: %v", err)
	}

	stateCounts := make(map[string]float64)
	for _, cam := range c.Client.Cameras() {
		isUp := 0.0
		if strings.EqualFold(cam.State, "CONNECTED") {
			isUp = 1.0
		}
		host := cam.Host
		if host == "" {
			host = "unknown"
		}
		ch <- prometheus.MustNewConstMetric(cameraUpDesc, prometheus.GaugeValue, isUp, cam.MAC, cam.Name, cam.Type, host)

		managed := 0.0
		if cam.IsManaged {
			managed = 1.0
		}
		ch <- prometheus.MustNewConstMetric(cameraManagedDesc, prometheus.GaugeValue, managed, cam.MAC, cam.Name)

		rtsp := 0.0
		for _, chn := range cam.Channels {
			if chn.IsRTSPEnabled {
				rtsp++
			}
		}
		ch <- prometheus.MustNewConstMetric(cameraRTSPDesc, prometheus.GaugeValue, rtsp, cam.MAC, cam.Name)

		st := strings.ToUpper(cam.State)
		if st == "" {
			st = "UNKNOWN"
		}
		stateCounts[st]++
	}
	for st, cnt := range stateCounts {
		ch <- prometheus.MustNewConstMetric(cameraCountDesc, prometheus.GaugeValue, cnt, st)
	}

	admin := 0.0
	if c.Client.IsAdmin() {
		admin = 1.0
	}
	ch <- prometheus.MustNewConstMetric(adminDesc, prometheus.GaugeValue, admin)

	feed := 0.0
	if c.Client.ListenerActive() {
		feed = 1.0
	}
	ch <- prometheus.MustNewConstMetric(eventFeedDesc, prometheus.GaugeValue, feed)

	ch <- prometheus.MustNewConstMetric(consecutiveErrorsDesc, prometheus.GaugeValue, float64(c.Client.ConsecutiveErrors()))
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, success)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}

// --- COMMAND ---

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Start Prometheus Exporter service",
	Long: `Starts a long-running HTTP server that exposes controller metrics.
Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		address := strings.TrimRight(strings.TrimPrefix(expAddress, "https://"), "/")

		api := client.New(client.ClientConfig{
			Address:  address,
			Username: expUser,
			Password: expPass,
			Logger:   logging.GetLogger(),
		})

		prg := &program{api: api}

		svcConfig := &service.Config{
			Name:        "protect-exporter",
			DisplayName: "Protect Prometheus Exporter",
			Description: "Exports UniFi Protect controller metrics for Prometheus.",
			Arguments: []string{
				"exporter",
				"--address", address,
				"--username", expUser,
				"--password", expPass,
				"--port", expPort,
			},
		}

		svc, err := service.New(prg, svcConfig)
		if err != nil {
			log.Fatalf("Failed to create service: %v", err)
		}

		if serviceAction != "" {
			if err := service.Control(svc, serviceAction); err != nil {
				log.Fatalf("Service action '%s' failed: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed.\n", serviceAction)
			return
		}

		if err := svc.Run(); err != nil {
			log.Fatalf("Service run failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exporterCmd)

	exporterCmd.Flags().StringVar(&expAddress, "address", "", "Controller address")
	exporterCmd.Flags().StringVarP(&expUser, "username", "u", "", "Controller username")
	exporterCmd.Flags().StringVarP(&expPass, "password", "p", "", "Controller password")
	exporterCmd.Flags().StringVar(&expPort, "port", "9773", "Exporter listen port")
	exporterCmd.Flags().StringVar(&serviceAction, "service", "", "Service control action: install, uninstall, start, stop")

	_ = exporterCmd.MarkFlagRequired("address")
	_ = exporterCmd.MarkFlagRequired("username")
	_ = exporterCmd.MarkFlagRequired("password")
}
