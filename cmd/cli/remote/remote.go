// Package remote holds the commands that talk to the analysis backend.
package remote

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/myrjola/aivisibility/internal/analysis"
	"github.com/myrjola/aivisibility/internal/backend"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/logging"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/myrjola/aivisibility/internal/queries"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "remote",
	Title: "Analysis backend",
}

func init() {
	for _, cmd := range []*cobra.Command{Queries, Analyze, Report} {
		cmd.Flags().String("backend-url", "", "base URL of the analysis backend (default $AIVIS_BACKEND_URL)")
	}
	for _, cmd := range []*cobra.Command{Queries, Analyze} {
		cmd.Flags().String("name", "", "brand name")
		cmd.Flags().String("domain", "", "brand website domain")
		cmd.Flags().String("keywords", "", "comma-separated product keywords")
	}
	Analyze.Flags().String("doc-id", "", "report id printed by the queries command")
	_ = Analyze.MarkFlagRequired("doc-id")
}

var Queries = &cobra.Command{
	Use:     "queries",
	GroupID: "remote",
	Short:   "Generate search queries for a brand",
	Long:    `Asks the backend for the search queries a buyer might put to an AI assistant and prints them.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		brand, err := brandFlags(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		generated, err := client.GenerateQueries(cmd.Context(), brand)
		if err != nil {
			return errors.Wrap(err, "generate queries")
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "doc id: %s\n", generated.DocID)
		for i, q := range generated.Queries {
			_, _ = fmt.Fprintf(out, "%2d. %s\n", i+1, q)
		}
		return nil
	},
}

var Analyze = &cobra.Command{
	Use:     "analyze [query]...",
	GroupID: "remote",
	Short:   "Analyse queries",
	Long: `Sends every query to the backend at once, waits until all of them have answered and prints the
per-query results together with the aggregate metrics.`,
	Args: cobra.RangeArgs(1, queries.MaxQueries),
	RunE: func(cmd *cobra.Command, args []string) error {
		brand, err := brandFlags(cmd)
		if err != nil {
			return err
		}
		docID, err := cmd.Flags().GetString("doc-id")
		if err != nil {
			return errors.Wrap(err, "doc-id flag")
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		list, err := analysisQueries(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		run := analysis.NewRun(brand, docID, list, client, newLogger(cmd))
		run.Start(ctx)
		select {
		case <-run.Settled():
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "wait for analysis")
		}
		return printRun(cmd.OutOrStdout(), run)
	},
}

// analysisQueries applies the same rules as the wizard's query editor to args.
func analysisQueries(args []string) ([]string, error) {
	if len(args) > queries.MaxQueries {
		return nil, errors.New("too many queries", slog.Int("count", len(args)), slog.Int("max", queries.MaxQueries))
	}
	list := queries.NewEditor(args).Freeze()
	if len(list) == 0 {
		return nil, errors.New("no queries to analyse")
	}
	return list, nil
}

var Report = &cobra.Command{
	Use:     "report [id]",
	GroupID: "remote",
	Short:   "Show a stored report",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		id := strings.TrimSpace(args[0])
		report, err := client.GetReport(cmd.Context(), id)
		if err != nil {
			return errors.Wrap(err, "get report", slog.String("doc_id", id))
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), created %s by %s\n\n",
			report.Name, report.Domain, report.CreatedAt.Format("2006-01-02"), report.CreatedBy)
		return printRun(cmd.OutOrStdout(), analysis.Rehydrate(id, report, client, newLogger(cmd)))
	},
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})))
}

func newClient(cmd *cobra.Command) (*backend.Client, error) {
	url, err := cmd.Flags().GetString("backend-url")
	if err != nil {
		return nil, errors.Wrap(err, "backend-url flag")
	}
	if url == "" {
		url = os.Getenv("AIVIS_BACKEND_URL")
	}
	if url == "" {
		return nil, errors.New("set --backend-url or AIVIS_BACKEND_URL")
	}
	client, err := backend.NewClient(url, nil, newLogger(cmd))
	if err != nil {
		return nil, errors.Wrap(err, "new backend client")
	}
	return client, nil
}

func brandFlags(cmd *cobra.Command) (models.BrandInput, error) {
	var (
		brand models.BrandInput
		err   error
	)
	if brand.Name, err = cmd.Flags().GetString("name"); err != nil {
		return brand, errors.Wrap(err, "name flag")
	}
	if brand.Domain, err = cmd.Flags().GetString("domain"); err != nil {
		return brand, errors.Wrap(err, "domain flag")
	}
	if brand.Keywords, err = cmd.Flags().GetString("keywords"); err != nil {
		return brand, errors.Wrap(err, "keywords flag")
	}
	if !brand.Complete() {
		return brand, errors.New("--name, --domain and --keywords are required")
	}
	return brand, nil
}

// printRun writes one line per query followed by the metrics.
func printRun(w io.Writer, run *analysis.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0) //nolint:mnd // column padding
	_, _ = fmt.Fprintln(tw, "#\tSTATUS\tVISIBLE\tRANK\tSCORE\tQUERY")
	for _, entry := range run.Entries() {
		visible, rank, score := "-", "-", "-"
		if item := entry.Item; item != nil {
			visible = "no"
			if item.IsVisible {
				visible = "yes"
			}
			rank = "N/A"
			if item.Ranked() {
				rank = fmt.Sprintf("#%d", item.Rank)
			}
			score = fmt.Sprintf("%d%%", analysis.ItemScore(*item))
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			entry.Index+1, entry.Status, visible, rank, score, entry.Query)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "flush table")
	}

	m := run.Metrics()
	_, err := fmt.Fprintf(w, "\nvisibility %s  average rank %s  score %s  insights %s\n",
		m.Visibility, m.AvgRank, m.Score, m.Insights)
	if err != nil {
		return errors.Wrap(err, "write metrics")
	}
	return nil
}
