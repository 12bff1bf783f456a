package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bloomgate/go-bloomgate/sitesync"
)

func (a *app) syncCmd() *cobra.Command {
	var (
		site, heldFile string
		ack            bool
	)
	c := &cobra.Command{
		Use:   "sync <exam>",
		Short: "ask the master site which modifications of an exam a site is missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if site == "" {
				return errors.New("--site is required")
			}
			held := []sitesync.ModRef{}
			if heldFile != "" {
				if err := readJSON(a.fs, heldFile, &held); err != nil {
					return err
				}
			}
			cl, err := a.newClient()
			if err != nil {
				return err
			}
			plan, err := cl.Plan(c.Context(), args[0], site, held)
			if err != nil {
				return err
			}
			if err := a.printJSON(plan); err != nil {
				return err
			}
			if !ack || len(plan.ModificationsToApply) == 0 {
				return nil
			}
			ids := make([]string, len(plan.ModificationsToApply))
			for i, m := range plan.ModificationsToApply {
				ids[i] = m.ID
			}
			_, err = cl.Ack(c.Context(), args[0], site, ids)
			return err
		},
	}
	c.Flags().StringVar(&site, "site", "", "id of the site")
	c.Flags().StringVar(&heldFile, "held", "", "JSON array of the modifications the site holds")
	c.Flags().BoolVar(&ack, "ack", false, "acknowledge the planned modifications as applied")
	return c
}
