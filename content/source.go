// Package content loads documents from a content directory: markdown with
// YAML front matter, plus plain YAML and JSON files. It implements the
// store's Loader and Watcher contracts, so a directory can be mounted as a
// live collection.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/asaidimu/go-maktaba/core/schema"
)

// DefaultExtensions are the file types loaded when none are configured.
var DefaultExtensions = []string{".md", ".yaml", ".yml", ".json"}

const defaultDebounce = 100 * time.Millisecond

// DirSourceOptions configures a DirSource. The zero value is usable.
type DirSourceOptions struct {
	// Extensions filters which files load. Defaults to DefaultExtensions.
	Extensions []string
	// Workers bounds the parse pool. Defaults to the CPU count.
	Workers int
	// DebounceInterval is the quiet period required before a change
	// triggers a reload. Defaults to 100ms.
	DebounceInterval time.Duration
	Logger           *zap.Logger
}

// DirSource loads every matching file under a directory into documents.
type DirSource struct {
	dir        string
	extensions map[string]bool
	workers    int
	debounce   time.Duration
	logger     *zap.Logger
}

// NewDirSource creates a source over a content directory.
func NewDirSource(dir string, opts *DirSourceOptions) *DirSource {
	if opts == nil {
		opts = &DirSourceOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	byExt := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		byExt[strings.ToLower(ext)] = true
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	debounce := opts.DebounceInterval
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &DirSource{
		dir:        dir,
		extensions: byExt,
		workers:    workers,
		debounce:   debounce,
		logger:     logger,
	}
}

// Load walks the directory and parses every matching file on a worker
// pool. Results come back ordered by path regardless of parse order; any
// file failing to parse fails the whole load.
func (s *DirSource) Load(ctx context.Context) ([]schema.Document, error) {
	paths, err := s.collectFiles()
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	docs := make([]schema.Document, len(paths))
	failures := make([]error, len(paths))

	pool, err := ants.NewPool(s.workers, ants.WithPanicHandler(func(v any) {
		s.logger.Error("Document parser panicked", zap.Any("value", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("creating parse pool: %w", err)
	}
	defer func() { _ = pool.ReleaseTimeout(3 * time.Second) }()

	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			doc, err := s.parseFile(p)
			if err != nil {
				failures[i] = err
				return
			}
			docs[i] = doc
		}); err != nil {
			wg.Done()
			failures[i] = fmt.Errorf("scheduling %s: %w", p, err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(failures...); err != nil {
		return nil, err
	}

	s.logger.Debug("Loaded content directory",
		zap.String("dir", s.dir),
		zap.Int("documents", len(docs)))
	return docs, nil
}

func (s *DirSource) collectFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != s.dir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.dir, err)
	}
	return paths, nil
}

// parseFile turns one file into a document and decorates it with the
// derived fields: path, dir, extension, slug, title, and timestamps.
// Explicit front-matter values win over the derived ones.
func (s *DirSource) parseFile(p string) (schema.Document, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}

	ext := strings.ToLower(filepath.Ext(p))
	var doc schema.Document
	switch ext {
	case ".md":
		doc, err = parseMarkdown(raw)
	case ".yaml", ".yml":
		doc, err = parseMapping(raw, yaml.Unmarshal)
	case ".json":
		doc, err = parseMapping(raw, json.Unmarshal)
	default:
		return nil, fmt.Errorf("unsupported extension %q for %s", ext, p)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}

	rel, relErr := filepath.Rel(s.dir, p)
	if relErr != nil {
		rel = filepath.Base(p)
	}
	rel = filepath.ToSlash(rel)

	doc["path"] = rel
	if dir := path.Dir(rel); dir != "." {
		doc["dir"] = dir
	} else {
		doc["dir"] = ""
	}
	doc["extension"] = strings.TrimPrefix(ext, ".")

	stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	if _, ok := doc["slug"].(string); !ok {
		doc["slug"] = Slugify(stem)
	}
	if _, ok := doc["title"]; !ok {
		doc["title"] = stem
	}

	modified := info.ModTime().UTC()
	if _, ok := doc["createdAt"]; !ok {
		doc["createdAt"] = modified
	}
	if _, ok := doc["updatedAt"]; !ok {
		doc["updatedAt"] = modified
	}
	return doc, nil
}

func parseMapping(raw []byte, unmarshal func([]byte, any) error) (schema.Document, error) {
	doc := schema.Document{}
	if err := unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = schema.Document{}
	}
	return doc, nil
}
