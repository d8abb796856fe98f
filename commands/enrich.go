package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/CaioMussatto/Cacaio-docker/dataimport"
	"github.com/CaioMussatto/Cacaio-docker/enrichr"
	"github.com/CaioMussatto/Cacaio-docker/report"
)

func (a *app) enrichCmd() *cobra.Command {
	var (
		dataset      string
		contrast     string
		genesPath    string
		libraries    []string
		top          int
		list         bool
		snapshotPath string
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run a differential-expression gene list through Enrichr",
		Long: `Submit the genes of a catalogue contrast (or a gene file) to Enrichr and
print the most significant terms of each library.

Use --list to show the contrasts of a dataset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var genes []string
			if genesPath != "" {
				panel, err := dataimport.LoadGenePanel(genesPath)
				if err != nil {
					return err
				}
				genes = panel
			} else {
				cat, err := a.openCatalog()
				if err != nil {
					return err
				}
				name, err := datasetName(cat, dataset)
				if err != nil {
					return err
				}
				if list || contrast == "" {
					contrasts, err := cat.Contrasts(name)
					if err != nil {
						return err
					}
					if !list {
						return fmt.Errorf("pass --contrast; %s has: %v", name, contrasts)
					}
					for _, c := range contrasts {
						fmt.Fprintln(out, c)
					}
					return nil
				}
				genes, err = cat.Genes(name, contrast)
				if err != nil {
					return err
				}
			}

			client, err := a.enrichrClient()
			if err != nil {
				return err
			}
			if len(libraries) == 0 {
				libraries = a.cfg.Enrichr.Libraries
			}
			slog.Info("submitting gene list", "genes", len(genes), "libraries", len(libraries))
			results, err := client.Enrich(cmd.Context(), genes, libraries)
			if err != nil {
				return err
			}

			best := enrichr.TopByAdjustedP(results, a.topN(top))
			fmt.Fprintln(out, report.RenderTable(report.EnrichmentHeaders, report.EnrichmentRows(best)))

			if snapshotPath != "" {
				snapshot, err := report.LoadSnapshot(snapshotPath)
				if err != nil {
					return err
				}
				snapshot.Enrichment = results
				if err := snapshot.Save(snapshotPath); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "catalogue dataset (default: first listed)")
	cmd.Flags().StringVarP(&contrast, "contrast", "c", "", "DEG contrast to submit")
	cmd.Flags().StringVarP(&genesPath, "genes", "g", "", "gene file (.txt, .csv, .tsv or .json) instead of a contrast")
	cmd.Flags().StringSliceVarP(&libraries, "library", "l", nil, "Enrichr libraries (default: enrichr.libraries)")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "terms to print (default: ranking.top_n)")
	cmd.Flags().BoolVar(&list, "list", false, "list the dataset's contrasts and exit")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "attach the results to an existing snapshot")

	cmd.AddCommand(a.librariesCmd())
	return cmd
}

func (a *app) librariesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "List the gene-set libraries Enrichr offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.enrichrClient()
			if err != nil {
				return err
			}
			names, err := client.Libraries(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func (a *app) enrichrClient() (*enrichr.Client, error) {
	url, err := a.cfg.EnrichrURL()
	if err != nil {
		return nil, err
	}
	return enrichr.NewClient(url, a.cfg.Enrichr.Timeout), nil
}
