package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	service "github.com/okian/mmo/internal/app"
	"github.com/okian/mmo/internal/auth"
	"github.com/okian/mmo/internal/config"
	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/internal/domain/ranking"
	"github.com/okian/mmo/internal/domain/scoring"
	"github.com/okian/mmo/pkg/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "mmo",
		Short:        "Marketing mix optimizer tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.AddCommand(newScoreCmd(), newHashPasswordCmd(), newSmokeCmd())
	return root
}

type scoreOptions struct {
	model      string
	file       string
	vocabulary string
	ranking    string
	zeroSpend  string
	guard      string
	top        bool
	asJSON     bool
}

func newScoreCmd() *cobra.Command {
	o := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a spend CSV and print ROI per ad group",
		Long: `Runs the recommendation pipeline against a local model artifact:
the upload is one-hot encoded, scored, aggregated by (Ad_group, Marketplace)
and ranked by ROI within each marketplace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.model, "model", "model.yaml", "model artifact (YAML or JSON)")
	f.StringVar(&o.file, "file", "", "spend CSV to score; - reads stdin")
	f.StringVar(&o.vocabulary, "vocabulary", config.VocabularyBatch, "category vocabulary: batch or trained")
	f.StringVar(&o.ranking, "ranking", config.RankingCompetition, "tie policy: competition or dense")
	f.StringVar(&o.zeroSpend, "zero-spend", config.ZeroSpendFlag, "zero spend policy: flag or fail")
	f.StringVar(&o.guard, "guard", "", "CEL expression recommended groups must satisfy")
	f.BoolVar(&o.top, "top", false, "print only the rank 1 group per marketplace")
	f.BoolVar(&o.asJSON, "json", false, "print JSON instead of a table")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runScore(cmd *cobra.Command, o *scoreOptions) error {
	cfg := config.New()
	cfg.ModelPath = o.model
	cfg.Vocabulary = o.vocabulary
	cfg.RankingPolicy = o.ranking
	cfg.ZeroSpend = o.zeroSpend
	if err := cfg.Validate(); err != nil {
		return err
	}

	predictor, err := scoring.LoadLinearModel(o.model)
	if err != nil {
		return err
	}
	guard, err := ranking.NewGuard(o.guard)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if o.file != "-" {
		fh, err := os.Open(o.file)
		if err != nil {
			return err
		}
		defer fh.Close()
		in = fh
	}

	log := logger.Get().Named("score")
	p := &service.Pipeline{
		TrainedVocabulary: cfg.Vocabulary == config.VocabularyTrained,
		MaxBytes:          cfg.MaxUploadBytes,
		Aggregator: ranking.NewAggregator(
			ranking.WithPolicy(ranking.Policy(cfg.RankingPolicy)),
			ranking.WithZeroSpend(ranking.ZeroSpend(cfg.ZeroSpend)),
			ranking.WithLogger(log),
		),
		Guard: guard,
		Log:   log,
	}
	out, err := p.Run(cmd.Context(), predictor, in)
	if err != nil {
		return fmt.Errorf("%s: %w", service.Kind(err), err)
	}

	groups := out.Groups
	if o.top {
		groups = out.Top
	}
	w := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}
	for _, warn := range out.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warn)
	}
	return printGroups(w, groups)
}

func printGroups(w io.Writer, groups []model.Group) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Ad_group\tMarketplace\tSales\tSpend\tROI\trank")
	for _, g := range groups {
		roi, rank := "undefined", "-"
		if !g.Flagged() {
			roi = strconv.FormatFloat(*g.ROI, 'f', 4, 64)
			rank = strconv.Itoa(g.Rank)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%s\t%s\n", g.AdGroup, g.Marketplace, g.Sales, g.Spend, roi, rank)
	}
	return tw.Flush()
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for the users config section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
