// Package dashboard turns sidebar selections into pages of tabbed charts and serves them.
package dashboard

import (
	"context"
	"fmt"
	"io"

	q "github.com/invertedv/qdash"
	"github.com/invertedv/qdash/chart"
	"github.com/invertedv/qdash/geo"
	"github.com/invertedv/qdash/quantiles"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dashboard renders pages. It holds no per-request state and is safe for concurrent use.
type Dashboard struct {
	loader *quantiles.Loader
	names  *q.Translator
	store  *geo.Store
	style  q.Style
	width  float64
	strict bool
	logger *zap.Logger
}

type Opt func(d *Dashboard)

func WithStyle(s q.Style) Opt {
	return func(d *Dashboard) { d.style = s }
}

func WithWidth(w float64) Opt {
	return func(d *Dashboard) { d.width = w }
}

// WithStrict makes misaligned median/lower/upper keys fail the render.
func WithStrict(strict bool) Opt {
	return func(d *Dashboard) { d.strict = strict }
}

func WithLogger(logger *zap.Logger) Opt {
	return func(d *Dashboard) { d.logger = logger }
}

func New(loader *quantiles.Loader, names *q.Translator, store *geo.Store, opts ...Opt) *Dashboard {
	d := &Dashboard{
		loader: loader,
		names:  names,
		store:  store,
		style:  q.DefaultStyle(),
		width:  chart.DefaultWidth,
		logger: zap.NewNop(),
	}

	for _, o := range opts {
		o(d)
	}

	return d
}

func (d *Dashboard) Style() q.Style {
	return d.style
}

// Page is one rendered view. Map and Chart are nil when hidden.
type Page struct {
	Selection Selection
	Layout    Layout
	Dirs      []string
	Labels    []string
	Map       *q.TabSet
	Chart     *q.TabSet
}

// Labels are the metric names the sidebar offers.
func (d *Dashboard) Labels() []string {
	return d.names.Labels()
}

func (d *Dashboard) Dirs(ctx context.Context) ([]string, error) {
	return d.loader.Dirs(ctx)
}

func (d *Dashboard) Defaults() Selection {
	return DefaultSelection(d.Labels())
}

// Render loads the median, lower and upper tables and builds the visible tab sets. Any failure
// aborts the whole page.
func (d *Dashboard) Render(ctx context.Context, sel Selection) (*Page, error) {
	page := &Page{Selection: sel, Layout: Effective(sel), Labels: d.Labels()}

	var e error
	if page.Dirs, e = d.Dirs(ctx); e != nil {
		return nil, e
	}

	if page.Selection.Dir == "" {
		if len(page.Dirs) == 0 {
			return nil, fmt.Errorf("%w: no output directories", q.ErrMissingData)
		}

		page.Selection.Dir = page.Dirs[0]
	}

	var median, lower, upper *q.Table
	if median, lower, upper, e = d.load(ctx, page.Selection); e != nil {
		return nil, e
	}

	if page.Layout.ShowMap {
		if page.Map, e = d.maps(median, page.Selection, page.Layout); e != nil {
			return nil, e
		}
	}

	if page.Layout.ShowChart {
		if page.Chart, e = d.timeSeries(median, lower, upper, page.Selection, page.Layout); e != nil {
			return nil, e
		}
	}

	d.logger.Debug("page rendered", zap.String("dir", page.Selection.Dir), zap.String("level", page.Selection.Level),
		zap.Strings("metrics", page.Selection.Metrics), zap.Bool("map", page.Layout.ShowMap), zap.Bool("chart", page.Layout.ShowChart))

	return page, nil
}

// load reads the three quantile tables concurrently and renames their columns.
func (d *Dashboard) load(ctx context.Context, sel Selection) (median, lower, upper *q.Table, err error) {
	qs := []float64{quantiles.Median, sel.Lower, sel.Upper}
	tables := make([]*q.Table, len(qs))

	g, gctx := errgroup.WithContext(ctx)
	for ind, ql := range qs {
		g.Go(func() error {
			t, e := d.loader.Load(gctx, quantiles.Key{Dir: sel.Dir, Level: sel.Level, Quantile: ql})
			if e != nil {
				return e
			}

			tables[ind], e = d.names.Apply(t)
			return e
		})
	}

	if err = g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	return tables[0], tables[1], tables[2], nil
}

func (d *Dashboard) options(sel Selection, height float64) chart.Options {
	opts := chart.DefaultOptions()
	opts.Width = d.width
	opts.Height = height
	opts.ShowBands = sel.ShowErrorBars
	opts.Strict = d.strict
	opts.Date = sel.Date
	opts.Style = d.style
	opts.Logger = d.logger
	opts.RegionCol = d.names.Label(quantiles.RegionCol(sel.Level))

	return opts
}

func (d *Dashboard) timeSeries(median, lower, upper *q.Table, sel Selection, lay Layout) (*q.TabSet, error) {
	opts := d.options(sel, lay.ChartHeight)
	if !median.Has(opts.RegionCol) {
		opts.RegionCol = ""
	}

	return chart.TimeSeriesTabs(median, lower, upper, sel.Metrics, opts)
}

func (d *Dashboard) maps(median *q.Table, sel Selection, lay Layout) (*q.TabSet, error) {
	var (
		layer *geo.Layer
		join  chart.Join
		e     error
	)

	switch sel.Level {
	case "0":
		if layer, e = d.store.Countries(); e != nil {
			return nil, e
		}

		join = chart.CountryJoin(quantiles.CodeCol)
	case "1":
		var fips *q.Table
		if layer, e = d.store.States(); e != nil {
			return nil, e
		}

		if fips, e = d.store.FIPS(); e != nil {
			return nil, e
		}

		join = chart.StateJoin(fips, d.names.Label(quantiles.RegionCol(sel.Level)))
	default:
		return nil, fmt.Errorf("%w: no map at admin level %s", q.ErrMalformedInput, sel.Level)
	}

	return chart.ChoroplethTabs(median, layer, join, sel.Metrics, d.options(sel, lay.MapHeight))
}

// TimeSeriesPNG writes the time series of one metric as a PNG image.
func (d *Dashboard) TimeSeriesPNG(ctx context.Context, sel Selection, metric string, w io.Writer) error {
	if sel.Dir == "" {
		dirs, e := d.Dirs(ctx)
		if e != nil {
			return e
		}

		if len(dirs) == 0 {
			return fmt.Errorf("%w: no output directories", q.ErrMissingData)
		}

		sel.Dir = dirs[0]
	}

	if !has(metric, d.Labels()) {
		return fmt.Errorf("%w: unknown metric %q", q.ErrMalformedInput, metric)
	}

	median, lower, upper, e := d.load(ctx, sel)
	if e != nil {
		return e
	}

	opts := d.options(sel, Effective(sel).ChartHeight)
	if !sel.ShowErrorBars {
		lower, upper = nil, nil
	}

	regionCol := opts.RegionCol
	if !median.Has(regionCol) {
		regionCol = median.ColumnNames()[0]
	}

	series, misaligned, e := chart.RegionSeries(median, lower, upper, regionCol, opts.DateCol, metric)
	if e != nil {
		return e
	}

	if misaligned > 0 && d.strict {
		return fmt.Errorf("%w: %s has %d misaligned keys", q.ErrJoinMismatch, metric, misaligned)
	}

	return chart.PNG(w, metric, series, opts)
}
