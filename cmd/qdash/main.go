package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	q "github.com/invertedv/qdash"
	"github.com/invertedv/qdash/config"
	"github.com/invertedv/qdash/dashboard"
	"github.com/invertedv/qdash/geo"
	"github.com/invertedv/qdash/quantiles"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// global flags
	verbose    bool
	configPath string
	root       string
	addr       string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qdash",
	Short: "Dashboard of forecast quantiles",
	Long: `qdash shows forecast quantile tables as tabbed time-series charts with
uncertainty bands and as choropleth maps.

Tables are read from <root>/output/<run>/adm<level>_quantiles.csv or from a
ClickHouse or Postgres table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}

		var e error
		if logger, e = cfg.Build(); e != nil {
			return fmt.Errorf("failed to initialize logger: %w", e)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE:  runServe,
}

var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "List the available output runs",
	RunE:  runDirs,
}

var (
	exportDir     string
	exportLevel   string
	exportMetrics []string
	exportOut     string
	exportMap     bool
	exportPNG     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write each tab as a standalone html page",
	Long: `Renders the dashboard for one selection and writes every tab to its own
html file in --out. With --png the time series are also written as PNG images.`,
	RunE: runExport,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&root, "root", "", "Data root holding output/ and data_tables/ (overrides config)")

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output run (default: first)")
	exportCmd.Flags().StringVar(&exportLevel, "level", dashboard.DefaultLevel, "Admin level")
	exportCmd.Flags().StringSliceVar(&exportMetrics, "metric", nil, "Metric labels (default: first four)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", ".", "Directory for the html files")
	exportCmd.Flags().BoolVar(&exportMap, "map", false, "Also export the maps")
	exportCmd.Flags().BoolVar(&exportPNG, "png", false, "Also export time series as PNG")

	rootCmd.AddCommand(serveCmd, dirsCmd, exportCmd)
}

func main() {
	if e := rootCmd.Execute(); e != nil {
		fmt.Fprintln(os.Stderr, e)
		os.Exit(1)
	}
}

// app is the wired dashboard with what must be closed after it.
type app struct {
	cfg     *config.Config
	dash    *dashboard.Dashboard
	loader  *quantiles.Loader
	src     quantiles.Source
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if e := c(); e != nil {
			logger.Warn("close failed", zap.Error(e))
		}
	}
}

func newApp() (*app, error) {
	cfg, e := config.Load(configPath)
	if e != nil {
		return nil, e
	}

	if root != "" {
		cfg.Root = root
	}

	a := &app{cfg: cfg}
	switch cfg.Source.Kind {
	case config.SourceFiles:
		a.src = quantiles.NewFileSource(cfg.Root)
	default:
		s := cfg.Source
		ds, e := quantiles.OpenDBSource(s.Kind, s.Host, s.User, s.Password, s.Database, s.Table)
		if e != nil {
			return nil, e
		}

		a.src = ds
		a.closers = append(a.closers, ds.Close)
	}

	var names *q.Translator
	if names, e = q.NewTranslator(cfg.Columns); e != nil {
		a.Close()
		return nil, e
	}

	a.loader = quantiles.NewLoader(a.src,
		quantiles.WithCache(quantiles.NewLRU(cfg.CacheSize)),
		quantiles.WithCountry(cfg.Country),
		quantiles.WithLogger(logger.Named("quantiles")))

	store := geo.NewStore(cfg.GeoPaths(), cfg.Exclude)
	a.dash = dashboard.New(a.loader, names, store,
		dashboard.WithStyle(cfg.Style),
		dashboard.WithWidth(cfg.Width),
		dashboard.WithStrict(cfg.Strict),
		dashboard.WithLogger(logger.Named("dashboard")))

	return a, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, e := newApp()
	if e != nil {
		return e
	}
	defer a.Close()

	if fs, ok := a.src.(*quantiles.FileSource); ok && a.cfg.Watch {
		w, e := quantiles.NewWatcher(fs.OutputPath(), a.loader.Cache(), logger.Named("watch"))
		if e != nil {
			return e
		}
		defer func() { _ = w.Close() }()

		if e = w.Start(ctx); e != nil {
			logger.Warn("output directory not watched", zap.String("path", fs.OutputPath()), zap.Error(e))
		}
	}

	srv, e := dashboard.NewServer(a.dash, logger.Named("http"))
	if e != nil {
		return e
	}

	listen := a.cfg.Addr
	if addr != "" {
		listen = addr
	}

	return srv.ListenAndServe(ctx, listen)
}

func runDirs(cmd *cobra.Command, args []string) error {
	a, e := newApp()
	if e != nil {
		return e
	}
	defer a.Close()

	dirs, e := a.dash.Dirs(cmd.Context())
	if e != nil {
		return e
	}

	for _, d := range dirs {
		fmt.Fprintln(cmd.OutOrStdout(), d)
	}

	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, e := newApp()
	if e != nil {
		return e
	}
	defer a.Close()

	sel := a.dash.Defaults()
	sel.Dir, sel.Level, sel.ShowMap = exportDir, exportLevel, exportMap
	if len(exportMetrics) > 0 {
		sel.Metrics = exportMetrics
	}

	page, e := a.dash.Render(ctx, sel)
	if e != nil {
		return e
	}

	if e = os.MkdirAll(exportOut, 0755); e != nil {
		return e
	}

	for _, ts := range []*q.TabSet{page.Map, page.Chart} {
		if ts == nil {
			continue
		}

		for _, t := range ts.Tabs {
			fileName := filepath.Join(exportOut, fileStem(ts.Name, t.Title)+".html")
			if e = t.Plot.Save(fileName); e != nil {
				return e
			}

			logger.Info("tab exported", zap.String("file", fileName))
		}
	}

	if !exportPNG {
		return nil
	}

	for _, m := range page.Selection.Metrics {
		fileName := filepath.Join(exportOut, fileStem("timeseries", m)+".png")
		f, e := os.Create(fileName)
		if e != nil {
			return e
		}

		e = a.dash.TimeSeriesPNG(ctx, page.Selection, m, f)
		if ec := f.Close(); e == nil {
			e = ec
		}

		if e != nil {
			return e
		}

		logger.Info("png exported", zap.String("file", fileName))
	}

	return nil
}

func fileStem(group, title string) string {
	r := strings.NewReplacer(" ", "_", "/", "_", "(", "", ")", "")
	return group + "_" + strings.ToLower(r.Replace(title))
}
