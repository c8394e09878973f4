package main

import (
	"banditlab/pkg/banditlab"

	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded experiment runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			entries, err := client.Runs(cmd.Context(), banditlab.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			for _, e := range entries {
				a.out.printf("run_id=%s created_at=%s command=%s models=%v horizon=%d seed=%d\n",
					a.out.au.Cyan(e.RunID), e.CreatedAtUTC, e.Command, e.Models, e.Horizon, e.Seed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var req banditlab.ExportRequest
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the artifacts of one run to an export directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.out.printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "run id to export")
	cmd.Flags().BoolVar(&req.Latest, "latest", false, "export the newest run")
	cmd.Flags().StringVar(&req.OutDir, "dir", "exports", "export directory")
	return cmd
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage memoized results",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			a.out.printf("cleared cache=%s entries=%d\n", a.cfg.Cache, n)
			return nil
		},
	})
	return cmd
}
