package main

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/bloomjoin"
	"github.com/bloomgate/go-bloomgate/cmd"
)

func (a *app) filterCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "filter",
		Short: "build and inspect filter snapshots",
	}
	c.AddCommand(a.filterBuildCmd(), a.filterInspectCmd(), a.filterMergeCmd())
	return c
}

func (a *app) hashFamily() (bloom.Opt, error) {
	family, err := bloom.FamilyByName(a.cfg.Filter.HashFamily)
	if err != nil {
		return nil, err
	}
	return bloom.WithHashFamily(family), nil
}

func (a *app) writeSnapshot(ctx context.Context, f *bloom.Filter, out, format string) error {
	data, err := encodeSnapshot(f.Serialize(), format)
	if err != nil {
		return err
	}
	if out == "" || out == "-" {
		_, err := a.out.Write(data)
		return err
	}
	return save(ctx, a.fs, out, data)
}

func (a *app) filterBuildCmd() *cobra.Command {
	var idsFile, out, format string
	c := &cobra.Command{
		Use:   "build [id...]",
		Short: "build the filter of ids given as arguments or in a file",
		RunE: func(c *cobra.Command, args []string) error {
			ids := args
			if idsFile != "" {
				fromFile, err := readIDs(a.fs, idsFile)
				if err != nil {
					return err
				}
				ids = append(ids, fromFile...)
			}
			opts, err := cmd.ReconcilerOpts(a.cfg.Filter)
			if err != nil {
				return err
			}
			r := bloomjoin.New[bloomjoin.Document](append(opts,
				bloomjoin.WithLogger(a.module("reconciler", a.cfg.LOGGING.ReconcilerLoggerLevel)),
			)...)
			return a.writeSnapshot(c.Context(), r.BuildFilter(ids), out, format)
		},
	}
	c.Flags().StringVar(&idsFile, "ids-file", "", "file with one id per line")
	c.Flags().StringVarP(&out, "out", "o", "", "write the snapshot to this file or gs:// object instead of stdout")
	c.Flags().StringVar(&format, "format", formatJSON, "snapshot encoding, json or scale")
	return c
}

func (a *app) filterInspectCmd() *cobra.Command {
	var probes []string
	c := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "print the parameters of a snapshot and probe ids against it",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			family, err := a.hashFamily()
			if err != nil {
				return err
			}
			f, format, err := readFilter(c.Context(), a.fs, args[0], family)
			if err != nil {
				return err
			}
			estimate := f.EstimateCount()
			fmt.Fprintf(a.out, "format: %s\n", format)
			fmt.Fprintf(a.out, "size: %d\n", f.Size())
			fmt.Fprintf(a.out, "hash count: %d\n", f.HashCount())
			fmt.Fprintf(a.out, "set bits: %d\n", f.SetBits())
			if math.IsInf(estimate, 1) {
				fmt.Fprintln(a.out, "estimated ids: saturated")
			} else {
				fmt.Fprintf(a.out, "estimated ids: %.0f\n", estimate)
				fmt.Fprintf(a.out, "false positive rate: %.6f\n",
					bloom.FalsePositiveRate(f.Size(), f.HashCount(), int(estimate)))
			}
			for _, id := range probes {
				verdict := "absent"
				if f.Contains(id) {
					verdict = "maybe present"
				}
				fmt.Fprintf(a.out, "%s: %s\n", id, verdict)
			}
			return nil
		},
	}
	c.Flags().StringSliceVar(&probes, "contains", nil, "ids to test for membership")
	return c
}

func (a *app) filterMergeCmd() *cobra.Command {
	var out, format string
	c := &cobra.Command{
		Use:   "merge <snapshot> <snapshot>...",
		Short: "union snapshots built with the same parameters",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			family, err := a.hashFamily()
			if err != nil {
				return err
			}
			merged, _, err := readFilter(c.Context(), a.fs, args[0], family)
			if err != nil {
				return err
			}
			for _, path := range args[1:] {
				f, _, err := readFilter(c.Context(), a.fs, path, family)
				if err != nil {
					return err
				}
				if err := merged.Merge(f); err != nil {
					return fmt.Errorf("merge %s: %w", path, err)
				}
			}
			return a.writeSnapshot(c.Context(), merged, out, format)
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "write the snapshot to this file or gs:// object instead of stdout")
	c.Flags().StringVar(&format, "format", formatJSON, "snapshot encoding, json or scale")
	return c
}
