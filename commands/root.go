// Package commands implements the cacaio command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CaioMussatto/Cacaio-docker/analysis"
	"github.com/CaioMussatto/Cacaio-docker/catalog"
	"github.com/CaioMussatto/Cacaio-docker/config"
	"github.com/CaioMussatto/Cacaio-docker/report"
	"github.com/CaioMussatto/Cacaio-docker/similarity"
)

// errNoCatalog is returned by commands that need a catalogue when neither
// --catalog nor the config file names one.
var errNoCatalog = errors.New("no catalog: pass --catalog or set catalog in the config file")

// app holds the state shared by every subcommand of one invocation.
type app struct {
	version     string
	configPath  string
	catalogPath string
	verbose     bool

	cfg *config.Config
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "cacaio",
		Short: "Compare cell lines, tumors and bulk samples by distance correlation",
		Long: `cacaio - similarity between pseudo-bulk single-cell profiles and bulk samples.

Samples are reduced to centroids in a shared principal-component space and
every pair is scored by distance correlation. External bulk tables are
projected into that space and batch-corrected with Harmony first.

Examples:
  # Write a synthetic catalogue and explore it
  cacaio demo ./demo
  cacaio compare --catalog ./demo/catalog.yaml
  cacaio crossmodal --catalog ./demo/catalog.yaml --bulk ./demo/bulk.csv --snapshot run.msgpack
  cacaio browse run.msgpack`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&a.catalogPath, "catalog", "", "dataset catalogue manifest (overrides the config file)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.compareCmd(),
		a.crossModalCmd(),
		a.enrichCmd(),
		a.fitCmd(),
		a.demoCmd(),
		a.browseCmd(),
		a.versionCmd(),
	)
	return root
}

// setup loads the configuration and installs the default logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	path, required := a.configPath, a.configPath != ""
	if !required {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	handler, err := cfg.Log.Handler()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))

	if a.catalogPath != "" {
		cfg.Catalog = a.catalogPath
	}
	a.cfg = cfg
	return nil
}

func (a *app) openCatalog() (*catalog.Catalog, error) {
	if a.cfg.Catalog == "" {
		return nil, errNoCatalog
	}
	return catalog.Open(a.cfg.Catalog)
}

// datasetName falls back to the catalogue's first dataset.
func datasetName(cat *catalog.Catalog, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	names := cat.Names()
	if len(names) == 0 {
		return "", fmt.Errorf("%w: catalogue lists no datasets", catalog.ErrUnknownDataset)
	}
	return names[0], nil
}

func (a *app) openDataset(name string) (*catalog.Dataset, error) {
	cat, err := a.openCatalog()
	if err != nil {
		return nil, err
	}
	name, err = datasetName(cat, name)
	if err != nil {
		return nil, err
	}
	return cat.Dataset(name)
}

func (a *app) topN(flag int) int {
	if flag > 0 {
		return flag
	}
	return a.cfg.Ranking.TopN
}

func (a *app) similarityOptions() similarity.Options {
	return similarity.Options{Workers: a.cfg.Workers}
}

// explainNoData turns empty selections into a readable message.
func explainNoData(err error) error {
	if analysis.IsNoData(err) {
		return fmt.Errorf("no data for this selection: %w", err)
	}
	return err
}

// writeExport stores entries as CSV or TSV depending on the extension.
func writeExport(path string, headers []string, entries []similarity.Entry) error {
	sep := '\t'
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		sep = ','
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteDelimited(f, headers, entries, sep); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
