// Command utxonetd runs one validator node.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	death "github.com/vrecan/death/v3"
	"go.uber.org/zap"

	"github.com/utxonet/utxonet/internal/config"
	"github.com/utxonet/utxonet/internal/logging"
	"github.com/utxonet/utxonet/internal/validator"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error happened:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "utxonetd",
		Short:         "UTXO ledger validator node",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.BuildViper(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.New(v)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.Flags().AddFlagSet(config.BuildFlagSet())
	return cmd
}

func run(cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	n, err := validator.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM)
	go d.WaitForDeathWithFunc(func() {
		log.Info("shutdown signal caught")
		cancel()
	})

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped", zap.String("address", cfg.Address()))
	return nil
}
