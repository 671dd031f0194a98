package quantiles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	q "github.com/invertedv/qdash"
)

// Source supplies raw quantile tables.
type Source interface {
	// Load returns the quantile table for k. It may hold other quantile levels.
	Load(ctx context.Context, k Key) (*q.Table, error)

	// Dirs lists the available output runs.
	Dirs(ctx context.Context) ([]string, error)
}

// *********** FileSource ***********

// FileSource reads <root>/output/<dir>/adm<level>_quantiles.csv.
type FileSource struct {
	root string
}

const OutputDir = "output"

func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

func (fs *FileSource) OutputPath() string {
	return filepath.Join(fs.root, OutputDir)
}

// Path is the csv holding the tables of k.
func (fs *FileSource) Path(k Key) string {
	return filepath.Join(fs.OutputPath(), k.Dir, fmt.Sprintf("adm%s_quantiles.csv", k.Level))
}

func (fs *FileSource) Load(ctx context.Context, k Key) (*q.Table, error) {
	if e := ctx.Err(); e != nil {
		return nil, e
	}

	dir := filepath.Join(fs.OutputPath(), k.Dir)
	if info, e := os.Stat(dir); e != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: output directory %s", q.ErrMissingData, dir)
	}

	var (
		f *q.Files
		e error
	)
	if f, e = q.NewFiles(q.FileFieldType(DateCol, q.DTdate), q.FileFieldType(QuantileCol, q.DTfloat)); e != nil {
		return nil, e
	}

	if e = f.Open(fs.Path(k)); e != nil {
		return nil, e
	}

	return f.Load()
}

func (fs *FileSource) Dirs(ctx context.Context) ([]string, error) {
	entries, e := os.ReadDir(fs.OutputPath())
	if e != nil {
		if errors.Is(e, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", q.ErrMissingData, e)
		}

		return nil, e
	}

	var dirs []string
	for _, ent := range entries {
		// skips .DS_Store and friends
		if !ent.IsDir() || strings.HasPrefix(ent.Name(), ".") {
			continue
		}

		dirs = append(dirs, ent.Name())
	}

	return dirs, nil
}

// *********** DBSource ***********

const (
	runCol   = "run"
	levelCol = "adm_level"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// DBSource reads quantile tables from a ClickHouse or Postgres table with the csv columns
// plus run (the output directory) and adm_level.
type DBSource struct {
	dialect *q.Dialect
	table   string
}

func NewDBSource(dialect *q.Dialect, table string) (*DBSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: bad table name %q", q.ErrMalformedInput, table)
	}

	return &DBSource{dialect: dialect, table: table}, nil
}

func (ds *DBSource) Query() string {
	ph := ds.dialect.Placeholder
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s AND %s = %s AND %s = %s ORDER BY %s",
		ds.table, runCol, ph(1), levelCol, ph(2), QuantileCol, ph(3), DateCol)
}

func (ds *DBSource) Load(ctx context.Context, k Key) (*q.Table, error) {
	var (
		level int
		e     error
	)
	if level, e = strconv.Atoi(k.Level); e != nil {
		return nil, fmt.Errorf("%w: admin level %q", q.ErrMalformedInput, k.Level)
	}

	var t *q.Table
	if t, e = ds.dialect.Load(ctx, ds.Query(), k.Dir, level, k.Quantile); e != nil {
		return nil, fmt.Errorf("%s %s: %w", ds.dialect.DialectName(), k, e)
	}

	return t.Drop(runCol, levelCol)
}

func (ds *DBSource) Dirs(ctx context.Context) ([]string, error) {
	return ds.dialect.Distinct(ctx, ds.table, runCol)
}

func (ds *DBSource) Close() error {
	return ds.dialect.Close()
}
