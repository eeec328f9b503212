package storage

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"madrid-dashboard/models"
	"madrid-dashboard/services"
	"madrid-dashboard/utils"
)

const cacheSize = 16

type entry struct {
	ds   *models.Dataset
	opts models.FilterOptions
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// TTL bounds how long a loaded dataset is reused. Changes to the source
	// within the window are not observed.
	TTL time.Duration
	// Table is the relation read for postgres:// paths.
	Table  string
	Retry  *utils.RetryConfig
	Logger *utils.Logger
}

// Loader reads datasets and memoizes them by path. Callers share the
// returned *models.Dataset and must not modify it.
type Loader struct {
	cache   *expirable.LRU[string, *entry]
	cleaner *services.Cleaner
	table   string
	retry   *utils.RetryConfig
	logger  *utils.Logger

	// mu serializes cache misses so concurrent callers load a path once.
	mu sync.Mutex
}

func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewDiscardLogger()
	}
	if cfg.Retry == nil {
		cfg.Retry = &utils.RetryConfig{MaxAttempts: 1, Logger: cfg.Logger}
	}
	return &Loader{
		cache:   expirable.NewLRU[string, *entry](cacheSize, nil, cfg.TTL),
		cleaner: services.NewCleaner(cfg.Logger),
		table:   cfg.Table,
		retry:   cfg.Retry,
		logger:  cfg.Logger,
	}
}

// Load returns the dataset at path, reading it on the first call within the
// TTL window. Failures are not cached.
func (l *Loader) Load(ctx context.Context, path string) (*models.Dataset, error) {
	e, err := l.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.ds, nil
}

// FilterOptions returns the filter domains of the dataset at path, memoized
// alongside it.
func (l *Loader) FilterOptions(ctx context.Context, path string) (models.FilterOptions, error) {
	e, err := l.get(ctx, path)
	if err != nil {
		return models.FilterOptions{}, err
	}
	return e.opts, nil
}

// Invalidate drops path from the cache.
func (l *Loader) Invalidate(path string) {
	l.cache.Remove(path)
}

// Purge drops every cached dataset.
func (l *Loader) Purge() {
	l.cache.Purge()
}

func (l *Loader) get(ctx context.Context, path string) (*entry, error) {
	if e, ok := l.cache.Get(path); ok {
		return e, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.cache.Get(path); ok {
		return e, nil
	}

	start := time.Now()
	raw, err := l.read(ctx, path)
	if err != nil {
		return nil, loadErr(redact(path), err)
	}
	rows, err := l.cleaner.Clean(raw)
	if err != nil {
		return nil, loadErr(redact(path), err)
	}

	ds := &models.Dataset{Source: redact(path), Rows: rows}
	e := &entry{ds: ds, opts: services.BuildFilterOptions(ds)}
	l.cache.Add(path, e)

	l.logger.Info("[loader] Loaded %d listings from %s in %v", len(rows), redact(path), time.Since(start).Round(time.Millisecond))
	return e, nil
}

func (l *Loader) read(ctx context.Context, path string) ([]services.RawRow, error) {
	src, err := l.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.Read(ctx)
}

func (l *Loader) open(ctx context.Context, path string) (Source, error) {
	switch {
	case isPostgresURL(path):
		return NewPostgresSource(ctx, path, l.table, l.retry)
	case strings.EqualFold(filepath.Ext(path), ".xlsx"):
		return NewXLSXSource(path), nil
	default:
		return NewCSVSource(path), nil
	}
}

// redact hides the password of a database URL before it is logged.
func redact(path string) string {
	if !isPostgresURL(path) {
		return path
	}
	at := strings.LastIndexByte(path, '@')
	scheme := strings.Index(path, "://") + 3
	if at < scheme {
		return path
	}
	creds := path[scheme:at]
	if i := strings.IndexByte(creds, ':'); i >= 0 {
		return path[:scheme] + creds[:i] + ":***" + path[at:]
	}
	return path
}
