package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bloomgate/go-bloomgate/api/client"
	"github.com/bloomgate/go-bloomgate/bloomjoin"
	"github.com/bloomgate/go-bloomgate/cmd"
)

func (a *app) newClient() (*client.Client, error) {
	return client.New(a.cfg.Client,
		client.WithLogger(a.module("client", a.cfg.LOGGING.ClientLoggerLevel)))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) joinCmd() *cobra.Command {
	var (
		masterFile, siteFile, changedFile string
		changed                           []string
		remote                            bool
	)
	c := &cobra.Command{
		Use:   "join",
		Short: "find the site records that differ from the master among the changed ids",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if masterFile == "" || siteFile == "" {
				return errors.New("both --master-records and --site-records are required")
			}
			var master, site []bloomjoin.Document
			if err := readJSON(a.fs, masterFile, &master); err != nil {
				return err
			}
			if err := readJSON(a.fs, siteFile, &site); err != nil {
				return err
			}
			if changedFile != "" {
				ids, err := readIDs(a.fs, changedFile)
				if err != nil {
					return err
				}
				changed = append(changed, ids...)
			}

			if remote {
				cl, err := a.newClient()
				if err != nil {
					return err
				}
				res, err := cl.BloomJoin(c.Context(), master, site, changed)
				if err != nil {
					return err
				}
				return a.printJSON(res)
			}
			opts, err := cmd.ReconcilerOpts(a.cfg.Filter)
			if err != nil {
				return err
			}
			r := bloomjoin.New[bloomjoin.Document](append(opts,
				bloomjoin.WithLogger(a.module("reconciler", a.cfg.LOGGING.ReconcilerLoggerLevel)),
			)...)
			return a.printJSON(r.PerformJoin(master, site, changed))
		},
	}
	c.Flags().StringVar(&masterFile, "master-records", "", "JSON array of master records")
	c.Flags().StringVar(&siteFile, "site-records", "", "JSON array of site records")
	c.Flags().StringSliceVar(&changed, "changed", nil, "ids changed on the master")
	c.Flags().StringVar(&changedFile, "changed-file", "", "file with one changed id per line")
	c.Flags().BoolVar(&remote, "remote", false, "run the join on the master site given by --master")
	return c
}
