package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/CaioMussatto/Cacaio-docker/analysis"
	"github.com/CaioMussatto/Cacaio-docker/report"
	"github.com/CaioMussatto/Cacaio-docker/similarity"
)

func (a *app) compareCmd() *cobra.Command {
	var (
		dataset      string
		components   int
		top          int
		exportPath   string
		snapshotPath string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Score every cell line against every tumor in one embedding",
		Long: `Reduce a dataset's embedding to per-sample centroids, split them into
cell lines (CCLE) and tumors, and score every pair by distance correlation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.openDataset(dataset)
			if err != nil {
				return err
			}

			opts := analysis.DefaultCompareOptions()
			opts.Components = components
			opts.Similarity = a.similarityOptions()
			result, err := analysis.CompareCentroids(ds.CompareEmbedding(), opts)
			if err != nil {
				return explainNoData(err)
			}

			entries := result.Matrix.Tidy()
			topEntries, err := similarity.TopN(entries, a.topN(top))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.RenderTable(report.CompareHeaders, report.EntryRows(topEntries)))
			fmt.Fprintf(out, "best match: %s ~ %s (%s)\n", result.Best.Row, result.Best.Column, report.FormatValue(result.Best.Value))
			if n := len(result.Report.Failures); n > 0 {
				fmt.Fprintf(out, "%d of %d pairs could not be scored\n", n, result.Report.Pairs)
			}

			if exportPath != "" {
				if err := writeExport(exportPath, report.CompareHeaders, entries); err != nil {
					return err
				}
			}
			if snapshotPath != "" {
				snapshot := &report.Snapshot{
					RunID:       result.RunID,
					Kind:        report.KindCompare,
					Dataset:     ds.Name,
					CreatedAt:   time.Now(),
					Entries:     entries,
					Best:        []similarity.Match{result.Best},
					SampleTypes: result.SampleTypes,
				}
				if err := snapshot.Save(snapshotPath); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "catalogue dataset (default: first listed)")
	cmd.Flags().IntVar(&components, "components", 0, "use PC1..PCn only (default: every PC column)")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "rows to print (default: ranking.top_n)")
	cmd.Flags().StringVarP(&exportPath, "output", "o", "", "write the full tidy table (.csv or .tsv)")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "save a snapshot for 'cacaio browse'")
	return cmd
}
