// Package main runs the rendezvous index server.
//
// The server binds a UDP socket (127.0.0.1:50000 by default), assigns an
// identifier to every peer that registers and answers address lookups until
// it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/peerindex/config"
	"github.com/opd-ai/peerindex/metrics"
	"github.com/opd-ai/peerindex/server"
)

var rootCmd = &cobra.Command{
	Use:               "peerindex-server",
	Short:             "Rendezvous index server for peerindex peers",
	Args:              cobra.NoArgs,
	PersistentPreRunE: initCommand,
	RunE:              runServer,
}

func init() {
	rootCmd.Flags().AddFlagSet(config.CommonFlags)
	rootCmd.Flags().AddFlagSet(config.ServerFlags)
}

func initCommand(cmd *cobra.Command, _ []string) error {
	if err := config.InitConfig(viper.GetString(config.CfgConfigFile)); err != nil {
		return err
	}
	return config.SetupLogging(cmd.ErrOrStderr())
}

func runServer(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	logger := logrus.WithFields(logrus.Fields{
		"component": "main",
		"function":  "runServer",
	})

	srvConfig, err := config.ServerConfig()
	if err != nil {
		return err
	}

	srv, err := server.New(srvConfig)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if err := startMetrics(gctx, g); err != nil {
		return err
	}
	g.Go(func() error { return srv.Serve(gctx) })

	logger.WithField("address", srv.LocalAddr().String()).Info("Listening")

	return g.Wait()
}

func startMetrics(ctx context.Context, g *errgroup.Group) error {
	addr := config.MetricsAddress()
	if addr == "" {
		return nil
	}
	ms, err := metrics.Listen(addr, nil)
	if err != nil {
		return err
	}
	g.Go(func() error { return ms.Serve(ctx) })
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
