// Package main runs an interactive peer.
//
// Usage:
//
//	peerindex-peer <port>
//
// The peer listens on the given UDP port, registers with the rendezvous
// index and prints its identifier. Each line read from stdin of the form
// "<uuid> <text>" is sent to that peer; received messages are printed to
// stdout.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/peerindex/config"
	"github.com/opd-ai/peerindex/metrics"
	"github.com/opd-ai/peerindex/peer"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "peerindex-peer <port>",
		Short:             "Interactive peerindex peer",
		Args:              validateArgs,
		PersistentPreRunE: initCommand,
		RunE:              runPeer,
	}
	cmd.Flags().AddFlagSet(config.CommonFlags)
	cmd.Flags().AddFlagSet(config.PeerFlags)
	return cmd
}

// validateArgs requires exactly one listening port in the range 1-65535.
func validateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	_, err := config.ParsePort(args[0])
	return err
}

func initCommand(cmd *cobra.Command, _ []string) error {
	if err := config.InitConfig(viper.GetString(config.CfgConfigFile)); err != nil {
		return err
	}
	return config.SetupLogging(cmd.ErrOrStderr())
}

func runPeer(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	port, err := config.ParsePort(args[0])
	if err != nil {
		return err
	}
	peerConfig, err := config.PeerConfig(port)
	if err != nil {
		return err
	}

	con := newConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	p, err := peer.New(peerConfig, con)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Register(ctx); err != nil {
		return err
	}
	con.printf("Registered as %s, listening on %s\n", p.ID(), p.LocalAddr())

	g, gctx := errgroup.WithContext(ctx)
	if addr := config.MetricsAddress(); addr != "" {
		ms, err := metrics.Listen(addr, nil)
		if err != nil {
			return err
		}
		g.Go(func() error { return ms.Serve(gctx) })
	}
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error { return con.run(gctx, p) })

	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
