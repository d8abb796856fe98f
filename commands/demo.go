package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CaioMussatto/Cacaio-docker/preload"
)

func (a *app) demoCmd() *cobra.Command {
	config := preload.DefaultDemoConfig()

	cmd := &cobra.Command{
		Use:   "demo [dir]",
		Short: "Write a synthetic catalogue to explore the commands",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "cacaio-demo"
			if len(args) > 0 {
				dir = args[0]
			}

			demo, err := preload.Generate(config)
			if err != nil {
				return err
			}
			manifest, err := demo.Write(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalog: %s\n", manifest)
			fmt.Fprintf(out, "bulk:    %s\n", filepath.Join(dir, "bulk.csv"))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  cacaio compare --catalog %s\n", manifest)
			fmt.Fprintf(out, "  cacaio crossmodal --catalog %s --bulk %s\n", manifest, filepath.Join(dir, "bulk.csv"))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&config.CellLines, "cell-lines", config.CellLines, "cell-line samples")
	flags.IntVar(&config.Tumors, "tumors", config.Tumors, "tumor samples")
	flags.IntVar(&config.CellsPerSample, "cells", config.CellsPerSample, "cells per sample")
	flags.IntVar(&config.Components, "components", config.Components, "principal components")
	flags.IntVar(&config.BulkSamples, "bulk-samples", config.BulkSamples, "bulk samples")
	flags.IntVar(&config.MissingGenes, "missing-genes", config.MissingGenes, "panel genes dropped from the bulk table")
	flags.Float64Var(&config.BatchOffset, "batch-offset", config.BatchOffset, "shift added to bulk values")
	flags.Int64Var(&config.Seed, "seed", config.Seed, "random seed")
	return cmd
}
