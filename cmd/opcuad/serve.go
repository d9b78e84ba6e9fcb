package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/spf13/cobra"

	"github.com/ioansiran/opcua-server/internal/addrspace"
	"github.com/ioansiran/opcua-server/internal/browse"
	"github.com/ioansiran/opcua-server/internal/config"
	"github.com/ioansiran/opcua-server/internal/log"
	"github.com/ioansiran/opcua-server/internal/metrics"
	"github.com/ioansiran/opcua-server/internal/subscription"
	"github.com/ioansiran/opcua-server/internal/transport"
	"github.com/ioansiran/opcua-server/internal/translate"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the address space, Browse/Translate services, and the publish scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9100", "Address the Prometheus /metrics endpoint listens on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logLevel, logJSON := cfg.LogLevel(), cfg.Log.JSON
	if cmd.Flags().Changed("log-level") {
		flagLevel, _ := cmd.Flags().GetString("log-level")
		logLevel = log.Level(flagLevel)
	}
	if cmd.Flags().Changed("log-json") {
		logJSON, _ = cmd.Flags().GetBool("log-json")
	}
	log.Init(log.Config{Level: logLevel, JSONOutput: logJSON})
	srvLog := log.WithComponent("server")

	index := addrspace.Bootstrap()
	reader := addrspace.NewValueReader(index)

	sessions := transport.NewInMemorySessions()
	endpoint := transport.NewInMemoryEndpoint()

	browseEngine := browse.NewEngine(index, sessions, log.WithComponent("browse"))
	translateService := translate.NewService(index)

	registry := subscription.NewRegistry(index)
	subService := subscription.NewService(registry)

	scheduler := subscription.NewScheduler(registry, index, sessions, endpoint, reader, subscription.PublishingIntervalMS*time.Millisecond, log.WithComponent("publish-scheduler"))
	defer scheduler.Close()

	demoToken := sessions.Open(demoSessionID)

	root := ua.NewNumericNodeID(1, 1)
	if results, status := browseEngine.Browse(demoToken, cfg.Limits.MaxBrowseResultsPerNode, []*ua.BrowseDescription{
		{NodeID: root, BrowseDirection: ua.BrowseDirectionForward, ResultMask: 0xff},
	}); status == ua.StatusOK {
		srvLog.Info().Int("root_references", len(results[0].References)).Msg("address space bootstrap check")
	}

	runDemoSession(srvLog, demoToken, scheduler, subService, translateService, reader)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvLog.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	srvLog.Info().
		Str("bind_addr", cfg.Endpoint.BindAddr).
		Str("application_uri", cfg.Endpoint.Application).
		Str("metrics_addr", metricsAddr).
		Msg("opcuad server started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	srvLog.Info().Msg("shutting down")
	scheduler.CloseSession(demoSessionID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsServer.Shutdown(ctx)
}
