package main

import (
	"context"
	"fmt"

	"github.com/gopcua/opcua"
	"github.com/spf13/cobra"

	"github.com/ioansiran/opcua-server/internal/diagnostic"
	"github.com/ioansiran/opcua-server/internal/log"
)

var watchEndpoint string

var watchCmd = &cobra.Command{
	Use:   "watch [node-id ...]",
	Short: "Connect to a running OPC UA endpoint and print data changes for the given NodeIds",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchEndpoint, "endpoint", "opc.tcp://localhost:4840", "Endpoint URL to connect to")
}

func runWatch(cmd *cobra.Command, args []string) error {
	watchLog := log.WithComponent("watch")
	ctx := context.Background()

	client, err := opcua.NewClient(watchEndpoint)
	if err != nil {
		return fmt.Errorf("watch: build client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("watch: connect to %s: %w", watchEndpoint, err)
	}
	defer client.Close(ctx)

	watcher := diagnostic.NewWatcher(client)
	watcher.SetErrorHandler(func(_ *opcua.Client, _ *diagnostic.Watch, err error) {
		watchLog.Warn().Err(err).Msg("watch delivery error")
	})

	ch := make(chan *diagnostic.DataChangeMessage, diagnostic.DefaultNotifyBufferLen)
	watch, err := watcher.ChanSubscribe(ctx, ch, args...)
	if err != nil {
		return fmt.Errorf("watch: subscribe: %w", err)
	}
	defer watch.Unsubscribe(ctx)

	watchLog.Info().Strs("nodes", args).Msg("watching for data changes, press Ctrl+C to stop")
	for msg := range ch {
		if msg.Error != nil {
			watchLog.Warn().Err(msg.Error).Msg("data change delivery error")
			continue
		}
		watchLog.Info().
			Str("node_id", msg.NodeID.String()).
			Interface("value", msg.Value.Value.Value()).
			Str("status", msg.Value.Status.Error()).
			Msg("data change")
	}
	return nil
}
