package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcastellin/gossip-detector/internal/engine"
	"github.com/mcastellin/gossip-detector/internal/httpapi"
	"github.com/mcastellin/gossip-detector/internal/membership"
	"github.com/mcastellin/gossip-detector/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagBind            string
	flagSeeds           []string
	flagTransport       string
	flagGossipInterval  time.Duration
	flagSuspectTimeout  time.Duration
	flagFanout          int
	flagGossipThreshold int
	flagHTTPAddr        string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run a gossip failure detector node",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagBind, "bind", "", "address this node binds and gossips as (required)")
	serveCmd.Flags().StringSliceVar(&flagSeeds, "seed", nil, "seed peer address, may be repeated")
	serveCmd.Flags().StringVar(&flagTransport, "transport", "udp", "transport to use: udp or tcp")
	serveCmd.Flags().DurationVar(&flagGossipInterval, "gossip-interval", time.Second, "period between gossip rounds")
	serveCmd.Flags().DurationVar(&flagSuspectTimeout, "suspect-timeout", 5*time.Second, "Suspect quarantine/condemnation window")
	serveCmd.Flags().IntVar(&flagFanout, "fanout", 3, "number of gossip targets per round")
	serveCmd.Flags().IntVar(&flagGossipThreshold, "gossip-threshold", 0, "Alive liveness tolerance in seconds (0 = derive from fanout)")
	serveCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "optional bind address for the read-only /nodes status endpoint")
	serveCmd.MarkFlagRequired("bind")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := zap.Must(zap.NewProduction())
	defer logger.Sync()

	var tr transport.Transport
	var err error
	switch flagTransport {
	case "udp":
		tr, err = transport.NewUDP(flagBind, logger)
	case "tcp":
		tr, err = transport.NewTCP(flagBind, logger)
	default:
		return fmt.Errorf("unknown transport %q: must be udp or tcp", flagTransport)
	}
	if err != nil {
		return err
	}

	seeds := make([]membership.Addr, len(flagSeeds))
	for i, s := range flagSeeds {
		seeds[i] = membership.Addr(s)
	}

	builder := engine.NewBuilder(membership.Addr(flagBind)).
		WithSeedNodes(seeds).
		WithTransport(tr).
		WithGossipInterval(flagGossipInterval).
		WithSuspectTimeout(flagSuspectTimeout).
		WithFanout(flagFanout).
		WithLogger(logger)
	if flagGossipThreshold > 0 {
		builder = builder.WithGossipThreshold(flagGossipThreshold)
	}

	eng, err := builder.Build()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flagHTTPAddr != "" {
		status := &httpapi.Server{Addr: flagHTTPAddr, Engine: eng, Logger: logger}
		go func() {
			if err := status.Serve(ctx); err != nil {
				logger.Warn("status server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("gossip node starting",
		zap.String("bind", flagBind), zap.Strings("seeds", flagSeeds),
		zap.String("generation", eng.Generation()))

	err = eng.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
