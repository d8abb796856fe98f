package commands

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/CaioMussatto/Cacaio-docker/analysis"
	"github.com/CaioMussatto/Cacaio-docker/crossmodal"
	"github.com/CaioMussatto/Cacaio-docker/dataimport"
	"github.com/CaioMussatto/Cacaio-docker/report"
)

func (a *app) crossModalCmd() *cobra.Command {
	var (
		dataset      string
		bulkPath     string
		components   int
		filter       string
		top          int
		exportPath   string
		snapshotPath string
	)

	cmd := &cobra.Command{
		Use:   "crossmodal",
		Short: "Match external bulk samples to pseudo-bulk centroids",
		Long: `Project a bulk expression table (samples x genes) into a dataset's fitted
PCA space, batch-correct it together with the pseudo-bulk centroids, and
score every bulk sample against every centroid.

Genes of the fitted panel that the bulk table lacks are filled with zeros.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.openDataset(dataset)
			if err != nil {
				return err
			}
			if !ds.HasProjection() {
				return fmt.Errorf("dataset %s has no projection artifact", ds.Name)
			}
			bulk, err := dataimport.LoadExpression(bulkPath)
			if err != nil {
				return err
			}

			opts := a.cfg.AlignOptions()
			switch {
			case cmd.Flags().Changed("components"):
				opts.Components = components
			case opts.Components != ds.Projection.Components():
				slog.Debug("using the projection's component count",
					"configured", opts.Components,
					"projection", ds.Projection.Components())
				opts.Components = ds.Projection.Components()
			}

			result, err := analysis.CrossModal(analysis.CrossModalRequest{
				Align: crossmodal.Request{
					Embedding:  ds.Embedding,
					Bulk:       bulk,
					Panel:      ds.Panel,
					Projection: ds.Projection,
					Options:    opts,
				},
				Similarity: a.similarityOptions(),
			})
			if err != nil {
				return explainNoData(err)
			}

			out := cmd.OutOrStdout()
			if missing := result.Alignment.MissingGenes; len(missing) > 0 {
				fmt.Fprintf(out, "%d panel genes missing from %s, filled with zeros: %s\n",
					len(missing), bulkPath, strings.Join(missing, ", "))
			}

			best := report.SortedMatches(result.RowBest, result.Matrix.RowIDs)
			fmt.Fprintln(out, "best pseudo-bulk match per bulk sample")
			fmt.Fprintln(out, report.RenderTable(report.CrossModalHeaders, report.MatchRows(best)))

			combinations, err := analysis.TopCombinations(result, filter, a.topN(top))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "top combinations (%s)\n", filter)
			fmt.Fprintln(out, report.RenderTable(report.CrossModalHeaders, report.EntryRows(combinations)))

			entries := result.Matrix.Tidy()
			if exportPath != "" {
				if err := writeExport(exportPath, report.CrossModalHeaders, entries); err != nil {
					return err
				}
			}
			if snapshotPath != "" {
				snapshot := &report.Snapshot{
					RunID:       result.RunID,
					Kind:        report.KindCrossModal,
					Dataset:     ds.Name,
					CreatedAt:   time.Now(),
					Entries:     entries,
					Best:        best,
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
	cmd.Flags().StringVarP(&bulkPath, "bulk", "b", "", "bulk expression table, samples x genes (.csv or .tsv)")
	cmd.Flags().IntVar(&components, "components", 0, "principal components to keep (default: the projection's)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "pseudo-bulk sample type: all, cell_line or primary_tumor")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "combinations to print (default: ranking.top_n)")
	cmd.Flags().StringVarP(&exportPath, "output", "o", "", "write the full tidy table (.csv or .tsv)")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "save a snapshot for 'cacaio browse'")
	_ = cmd.MarkFlagRequired("bulk")
	return cmd
}
