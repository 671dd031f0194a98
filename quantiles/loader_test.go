package quantiles

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	q "github.com/invertedv/qdash"
	"github.com/stretchr/testify/assert"
)

const adm1CSV = `adm1,date,quantile,daily_cases,daily_deaths
6,2020-03-01,0.05,1,0
6,2020-03-01,0.5,2,1
6,2020-03-01,0.95,3,2
6,2020-03-02,0.5,4,1
36,2020-03-01,0.5,10,3
36,2020-03-01,0.25,8,2
`

// writeRun lays out <root>/output/<dir>/adm<level>_quantiles.csv.
func writeRun(t *testing.T, root, dir, level, body string) {
	t.Helper()
	path := filepath.Join(root, OutputDir, dir)
	assert.Nil(t, os.MkdirAll(path, 0755))
	assert.Nil(t, os.WriteFile(filepath.Join(path, "adm"+level+"_quantiles.csv"), []byte(body), 0644))
}

func TestLoader_Load(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "run1", "1", adm1CSV)
	l := NewLoader(NewFileSource(root))

	for _, ql := range []float64{0.05, 0.25, Median, 0.95} {
		tbl, e := l.Load(context.Background(), Key{Dir: "run1", Level: "1", Quantile: ql})
		assert.Nil(t, e)

		qc, _ := tbl.Column(QuantileCol)
		x, _ := qc.AsFloat()
		for _, xv := range x {
			assert.Equal(t, ql, xv)
		}

		code, e := tbl.Column(CodeCol)
		assert.Nil(t, e)
		for _, c := range code.AsString() {
			assert.Equal(t, DefaultCountry, c)
		}
	}

	med, _ := l.Load(context.Background(), Key{Dir: "run1", Level: "1", Quantile: Median})
	assert.Equal(t, 3, med.RowCount())
	assert.Equal(t, 4, l.Cache().Len())
}

func TestLoader_Errors(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "run1", "1", adm1CSV)
	writeRun(t, root, "noquantile", "1", "adm1,date,daily_cases\n6,2020-03-01,1\n")
	l := NewLoader(NewFileSource(root))
	ctx := context.Background()

	_, e := l.Load(ctx, Key{Dir: "absent", Level: "1", Quantile: Median})
	assert.True(t, errors.Is(e, q.ErrMissingData))

	_, e = l.Load(ctx, Key{Dir: "run1", Level: "0", Quantile: Median})
	assert.True(t, errors.Is(e, q.ErrMissingData))

	_, e = l.Load(ctx, Key{Dir: "noquantile", Level: "1", Quantile: Median})
	assert.True(t, errors.Is(e, q.ErrMalformedInput))

	_, e = l.Load(ctx, Key{Dir: "run1", Level: "3", Quantile: Median})
	assert.True(t, errors.Is(e, q.ErrMalformedInput))

	_, e = l.Load(ctx, Key{Dir: "run1", Level: "1", Quantile: 0.3})
	assert.True(t, errors.Is(e, q.ErrMalformedInput))

	_, e = l.Load(ctx, Key{Dir: "../run1", Level: "1", Quantile: Median})
	assert.True(t, errors.Is(e, q.ErrMalformedInput))

	assert.Equal(t, 0, l.Cache().Len())
}

func TestLoader_Country(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "run1", "1", adm1CSV)
	l := NewLoader(NewFileSource(root), WithCountry("CAN"))

	tbl, e := l.Load(context.Background(), Key{Dir: "run1", Level: "1", Quantile: Median})
	assert.Nil(t, e)

	code, _ := tbl.Column(CodeCol)
	assert.Equal(t, "CAN", code.AsString()[0])
}

// countingSource counts reads of the wrapped source.
type countingSource struct {
	Source
	n atomic.Int32
}

func (cs *countingSource) Load(ctx context.Context, k Key) (*q.Table, error) {
	cs.n.Add(1)
	return cs.Source.Load(ctx, k)
}

func TestLoader_Memoizes(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "run1", "1", adm1CSV)
	src := &countingSource{Source: NewFileSource(root)}
	l := NewLoader(src)
	k := Key{Dir: "run1", Level: "1", Quantile: Median}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, e := l.Load(context.Background(), k)
			assert.Nil(t, e)
		}()
	}
	wg.Wait()

	first, _ := l.Load(context.Background(), k)
	second, _ := l.Load(context.Background(), k)
	assert.Same(t, first, second)
	assert.True(t, src.n.Load() >= 1 && src.n.Load() <= 8)

	before := src.n.Load()
	_, _ = l.Load(context.Background(), k)
	assert.Equal(t, before, src.n.Load())
}

func TestSelect(t *testing.T) {
	f, _ := q.NewFiles()
	raw, e := f.Read(strings.NewReader(adm1CSV))
	assert.Nil(t, e)

	sel, e := Select(raw, 0.95, "USA")
	assert.Nil(t, e)
	assert.Equal(t, 1, sel.RowCount())

	none, e := Select(raw, 0.75, "USA")
	assert.Nil(t, e)
	assert.Equal(t, 0, none.RowCount())
}

func TestFileSource_Dirs(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "b_run", "1", adm1CSV)
	writeRun(t, root, "a_run", "0", adm1CSV)
	assert.Nil(t, os.WriteFile(filepath.Join(root, OutputDir, ".DS_Store"), nil, 0644))
	assert.Nil(t, os.MkdirAll(filepath.Join(root, OutputDir, ".hidden"), 0755))

	dirs, e := NewFileSource(root).Dirs(context.Background())
	assert.Nil(t, e)
	assert.Equal(t, []string{"a_run", "b_run"}, dirs)

	_, e = NewFileSource(t.TempDir()).Dirs(context.Background())
	assert.True(t, errors.Is(e, q.ErrMissingData))
}

// blockingSource holds the first Load until release is closed. Tables carry the version current
// when the read started.
type blockingSource struct {
	version atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newBlockingSource() *blockingSource {
	return &blockingSource{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (bs *blockingSource) Dirs(context.Context) ([]string, error) {
	return []string{"run1"}, nil
}

func (bs *blockingSource) Load(_ context.Context, _ Key) (*q.Table, error) {
	v := float64(bs.version.Load())
	select {
	case bs.started <- struct{}{}:
	default:
	}

	<-bs.release

	qc, e := q.NewCol(QuantileCol, []float64{Median}, q.DTfloat)
	if e != nil {
		return nil, e
	}

	vc, e := q.NewCol("version", []float64{v}, q.DTfloat)
	if e != nil {
		return nil, e
	}

	return q.NewTable(qc, vc)
}

func version(t *testing.T, tbl *q.Table) float64 {
	t.Helper()
	c, e := tbl.Column("version")
	assert.Nil(t, e)
	x, _ := c.AsFloat()

	return x[0]
}

func TestLoader_EvictDuringLoad(t *testing.T) {
	src := newBlockingSource()
	l := NewLoader(src)
	k := Key{Dir: "run1", Level: "1", Quantile: Median}
	ctx := context.Background()

	done := make(chan *q.Table)
	go func() {
		tbl, e := l.Load(ctx, k)
		assert.Nil(t, e)
		done <- tbl
	}()

	<-src.started
	l.Cache().RemoveDir("run1")
	src.version.Store(2)
	close(src.release)

	// the overlapping read still answers its caller
	assert.Equal(t, 0.0, version(t, <-done))
	assert.Equal(t, 0, l.Cache().Len())

	fresh, e := l.Load(ctx, k)
	assert.Nil(t, e)
	assert.Equal(t, 2.0, version(t, fresh))
	assert.Equal(t, 1, l.Cache().Len())
}
