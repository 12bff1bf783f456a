package main

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bloomgate/go-bloomgate/cmd"
	"github.com/bloomgate/go-bloomgate/config"
	"github.com/bloomgate/go-bloomgate/log"
)

type app struct {
	fs   afero.Fs
	out  io.Writer
	cfg  *config.Config
	logs *log.Factory
}

func newRootCmd(fs afero.Fs, out io.Writer) *cobra.Command {
	a := &app{fs: fs, out: out}
	root := &cobra.Command{
		Use:           "bloomgate",
		Short:         "bloom filter reconciliation of record sets",
		Version:       fmt.Sprintf("%s (%s)", cmd.Version, cmd.Commit),
		SilenceUsage:  true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return a.init(c)
		},
	}
	cmd.AddFlags(root.PersistentFlags())
	root.SetOut(out)
	root.AddCommand(
		a.serveCmd(),
		a.filterCmd(),
		a.joinCmd(),
		a.syncCmd(),
	)
	return root
}

func (a *app) init(c *cobra.Command) error {
	cfg, err := cmd.LoadConfig(a.fs, c.Flags())
	if err != nil {
		return err
	}
	logs, err := log.New(cfg.LOGGING, c.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logs = logs
	return nil
}

func (a *app) module(name, level string) *zap.Logger {
	logger, err := a.logs.Module(name, level)
	if err != nil {
		// levels are checked when the config is loaded
		panic(fmt.Sprintf("BUG: %v", err))
	}
	return logger
}
