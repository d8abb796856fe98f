package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CaioMussatto/Cacaio-docker/catalog"
	"github.com/CaioMussatto/Cacaio-docker/dataimport"
	"github.com/CaioMussatto/Cacaio-docker/projection"
)

func (a *app) fitCmd() *cobra.Command {
	var (
		cellsPath  string
		panelPath  string
		components int
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the scaler and PCA that define a dataset's embedding space",
		Long: `Fit a standard scaler and a PCA on a single-cell expression table
(cells x genes) restricted to a gene panel, and store both with the panel as a
projection artifact that the catalogue can reference.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cells, err := dataimport.LoadExpression(cellsPath)
			if err != nil {
				return err
			}
			panel := cells.Genes
			if panelPath != "" {
				if panel, err = dataimport.LoadGenePanel(panelPath); err != nil {
					return err
				}
			}

			reindexed, missing, err := cells.Reindex(panel)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d panel genes missing from %s: %v", len(missing), cellsPath, missing)
			}

			if !cmd.Flags().Changed("components") {
				components = a.cfg.Aligner.Components
			}
			scaler := projection.FitScaler(reindexed.Values)
			scaled, err := scaler.Transform(reindexed.Values)
			if err != nil {
				return err
			}
			pca, err := projection.FitPCA(scaled, components)
			if err != nil {
				return err
			}

			artifact, err := catalog.NewArtifact(panel, scaler, pca)
			if err != nil {
				return err
			}
			if err := catalog.WriteArtifact(outPath, artifact); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fitted %d components on %d cells x %d genes\n", pca.NComponents(), len(cells.Samples), len(panel))
			for i, v := range pca.ExplainedVariance {
				if i == 5 {
					break
				}
				fmt.Fprintf(out, "  PC%d variance %.4g\n", i+1, v)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cellsPath, "cells", "", "single-cell expression table, cells x genes (.csv or .tsv)")
	cmd.Flags().StringVar(&panelPath, "panel", "", "highly-variable gene panel (default: every gene)")
	cmd.Flags().IntVar(&components, "components", 0, "principal components (default: aligner.components)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "projection.msgpack", "artifact path")
	_ = cmd.MarkFlagRequired("cells")
	return cmd
}
