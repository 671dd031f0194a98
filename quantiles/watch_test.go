package quantiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestWatcher_EvictsChangedDir(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeRun(t, root, "run1", "1", adm1CSV)
	writeRun(t, root, "run2", "1", adm1CSV)

	fs := NewFileSource(root)
	cache := NewLRU(DefaultCacheSize)
	l := NewLoader(fs, WithCache(cache))
	ctx := context.Background()
	for _, dir := range []string{"run1", "run2"} {
		_, e := l.Load(ctx, Key{Dir: dir, Level: "1", Quantile: Median})
		assert.Nil(t, e)
	}
	assert.Equal(t, 2, cache.Len())

	w, e := NewWatcher(fs.OutputPath(), cache, nil)
	assert.Nil(t, e)
	assert.Nil(t, w.Start(ctx))

	writeRun(t, root, "run1", "1", adm1CSV+"6,2020-03-03,0.5,5,1\n")
	assert.Eventually(t, func() bool {
		_, ok := cache.Get(Key{Dir: "run1", Level: "1", Quantile: Median})
		return !ok
	}, 5*time.Second, 20*time.Millisecond)

	_, ok := cache.Get(Key{Dir: "run2", Level: "1", Quantile: Median})
	assert.True(t, ok)

	// reload sees the new row
	tbl, e := l.Load(ctx, Key{Dir: "run1", Level: "1", Quantile: Median})
	assert.Nil(t, e)
	assert.Equal(t, 4, tbl.RowCount())

	assert.Nil(t, w.Close())
	assert.Nil(t, w.Close())
}

func TestWatcher_NewDir(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	assert.Nil(t, os.MkdirAll(filepath.Join(root, OutputDir), 0755))
	cache := NewLRU(DefaultCacheSize)

	w, e := NewWatcher(filepath.Join(root, OutputDir), cache, nil)
	assert.Nil(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	assert.Nil(t, w.Start(ctx))

	writeRun(t, root, "fresh", "0", adm1CSV)
	k := Key{Dir: "fresh", Level: "0", Quantile: Median}
	assert.Eventually(t, func() bool {
		// keep adding until a later write under the new directory evicts it
		cache.Add(k, oneRow(t))
		_ = os.WriteFile(filepath.Join(root, OutputDir, "fresh", "touch"), []byte(time.Now().String()), 0644)
		time.Sleep(10 * time.Millisecond)
		_, ok := cache.Get(k)
		return !ok
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.Nil(t, w.Close())
}

func TestWatcher_RunDir(t *testing.T) {
	w := &Watcher{root: filepath.Clean("/data/output")}
	assert.Equal(t, "run1", w.runDir("/data/output/run1/adm1_quantiles.csv"))
	assert.Equal(t, "run1", w.runDir("/data/output/run1"))
	assert.Equal(t, "", w.runDir("/data/output"))
	assert.Equal(t, "", w.runDir("/data/other/run1"))
}
