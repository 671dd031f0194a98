package quantiles

import (
	"context"
	"fmt"

	q "github.com/invertedv/qdash"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCountry is the country code attached to every loaded row.
const DefaultCountry = "USA"

// Loader loads quantile tables through a cache. Tables it returns are shared and must not be
// modified.
type Loader struct {
	src     Source
	cache   Cache
	country string
	group   singleflight.Group
	logger  *zap.Logger
}

type LoaderOpt func(l *Loader)

func WithCache(c Cache) LoaderOpt {
	return func(l *Loader) { l.cache = c }
}

func WithCountry(code string) LoaderOpt {
	return func(l *Loader) { l.country = code }
}

func WithLogger(logger *zap.Logger) LoaderOpt {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(src Source, opts ...LoaderOpt) *Loader {
	l := &Loader{
		src:     src,
		country: DefaultCountry,
		logger:  zap.NewNop(),
	}

	for _, o := range opts {
		o(l)
	}

	if l.cache == nil {
		l.cache = NewLRU(DefaultCacheSize)
	}

	return l
}

func (l *Loader) Cache() Cache {
	return l.cache
}

func (l *Loader) Dirs(ctx context.Context) ([]string, error) {
	return l.src.Dirs(ctx)
}

// Load returns the rows of quantile level k.Quantile, tagged with the country code.
// Concurrent loads of the same key share one read. A read that overlaps an eviction of its
// directory is returned to its callers but not cached.
func (l *Loader) Load(ctx context.Context, k Key) (*q.Table, error) {
	if e := k.Validate(); e != nil {
		return nil, e
	}

	if t, ok := l.cache.Get(k); ok {
		l.logger.Debug("quantile cache hit", zap.Stringer("key", k))
		return t, nil
	}

	gen := l.cache.Generation(k.Dir)
	v, e, shared := l.group.Do(fmt.Sprintf("%s#%d", k, gen), func() (interface{}, error) {
		raw, e := l.src.Load(context.WithoutCancel(ctx), k)
		if e != nil {
			return nil, e
		}

		t, e := Select(raw, k.Quantile, l.country)
		if e != nil {
			return nil, fmt.Errorf("%s: %w", k, e)
		}

		if !l.cache.AddAt(k, t, gen) {
			l.logger.Info("quantile table changed during load, not cached", zap.Stringer("key", k))
			return t, nil
		}

		l.logger.Info("quantile table loaded", zap.Stringer("key", k), zap.Int("rows", t.RowCount()))

		return t, nil
	})

	if e != nil {
		l.logger.Warn("quantile load failed", zap.Stringer("key", k), zap.Error(e))
		return nil, e
	}

	if shared {
		l.logger.Debug("quantile load shared", zap.Stringer("key", k))
	}

	return v.(*q.Table), nil
}

// Select keeps the rows of t whose quantile column equals quantile and appends the constant
// country-code column.
func Select(t *q.Table, quantile float64, country string) (*q.Table, error) {
	if !t.Has(QuantileCol) {
		return nil, fmt.Errorf("%w: no %s column", q.ErrMalformedInput, QuantileCol)
	}

	var (
		sel *q.Table
		e   error
	)
	if sel, e = t.WhereFloat(QuantileCol, func(x float64) bool { return q.Near(x, quantile) }); e != nil {
		return nil, e
	}

	if sel.Has(CodeCol) {
		if sel, e = sel.Drop(CodeCol); e != nil {
			return nil, e
		}
	}

	var code *q.Col
	if code, e = q.Constant(CodeCol, country, sel.RowCount()); e != nil {
		return nil, e
	}

	return sel.WithColumn(code)
}
