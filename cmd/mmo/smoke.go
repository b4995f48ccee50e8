package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/mmo/internal/testuploads"
	"github.com/okian/mmo/pkg/logger"
	"github.com/spf13/cobra"
)

func newSmokeCmd() *cobra.Command {
	cfg := &testuploads.Config{}
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Upload synthetic spend files to a running server and verify the rankings",
		Long: `Signs in, submits generated spend CSVs concurrently to /recommendation,
checks every returned ranking against its own totals and confirms that an
identical upload is replayed. The marketplaces and ad groups must match the
served model.`,
		Example: `  mmo smoke --url http://localhost:8080 --user analyst --password secret --uploads 200 --workers 8`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Verbose {
				_ = logger.SetLevelString("info")
			}
			stats, err := testuploads.Run(cmd.Context(), cfg, logger.Get().Named("smoke"))
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "submitted=%d accepted=%d replayed=%d failed=%d verified=%d inconsistencies=%d duration=%s\n",
					stats.UploadsSubmitted, stats.UploadsAccepted, stats.UploadsReplayed, stats.UploadsFailed,
					stats.RunsVerified, stats.Inconsistencies, stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the service")
	f.StringVar(&cfg.Username, "user", "", "login name")
	f.StringVar(&cfg.Password, "password", "", "login password")
	f.IntVar(&cfg.Uploads, "uploads", 100, "number of distinct uploads to submit")
	f.IntVar(&cfg.RowsPerGroup, "rows", 10, "rows per (Ad_group, Marketplace) pair")
	f.StringSliceVar(&cfg.Marketplaces, "marketplaces", []string{"MKT_A", "MKT_B"}, "marketplace values")
	f.StringSliceVar(&cfg.AdGroups, "ad-groups", []string{"Grp1", "Grp2"}, "ad group values")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every upload")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
