// Package searchindex implements the formula Search Index: a bleve
// full-text index over each tap's Formula/ tree, queried by name and
// optionally description, with an opt-in fuzzy mode.
package searchindex

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"golang.org/x/sync/errgroup"

	"github.com/brewkeg/brewkeg/internal/brewerr"
	"github.com/brewkeg/brewkeg/internal/formula"
	"github.com/brewkeg/brewkeg/internal/log"
)

// maxConcurrentTapScans bounds rebuild()'s per-tap formula-parsing fanout.
const maxConcurrentTapScans = 4

// Record is one indexed formula: name/description are full-text
// searchable, the rest are stored only for display.
type Record struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Tap         string `json:"tap"`
	Path        string `json:"path"`
}

// TapSource names one tap's local clone root, as the index walks its
// Formula/ subtree during rebuild.
type TapSource struct {
	Name string
	Path string
}

// Options controls how Search matches: Description adds that field to
// the default name-only search; Fuzzy enables edit-distance-1 matching.
type Options struct {
	Description bool
	Fuzzy       bool
	Limit       int
}

// Index wraps a bleve index rooted at a single directory on disk.
type Index struct {
	dir    string
	idx    bleve.Index
	logger log.Logger
}

// Open opens the index at dir, creating it (and the schema) if absent.
func Open(dir string) (*Index, error) {
	idx, err := openOrCreate(dir)
	if err != nil {
		return nil, brewerr.NewSearchError("open", err)
	}
	return &Index{dir: dir, idx: idx, logger: log.Default()}, nil
}

func openOrCreate(dir string) (bleve.Index, error) {
	if _, err := os.Stat(filepath.Join(dir, "index_meta.json")); err == nil {
		return bleve.Open(dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return bleve.New(dir, buildMapping())
}

func buildMapping() *mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", textField)
	doc.AddFieldMappingsAt("description", textField)
	doc.AddFieldMappingsAt("version", storedOnly)
	doc.AddFieldMappingsAt("tap", storedOnly)
	doc.AddFieldMappingsAt("path", storedOnly)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// Close releases the underlying index handle.
func (i *Index) Close() error {
	return i.idx.Close()
}

// IndexFormula adds or replaces the document for one formula, for callers
// that just finished installing or re-parsing a single formula and don't
// want to pay for a full Rebuild.
func (i *Index) IndexFormula(r Record) error {
	if err := i.idx.Index(r.Tap+"/"+r.Name, r); err != nil {
		return brewerr.NewSearchError(r.Name, err)
	}
	return nil
}

// Search matches text against name (and description, when requested),
// returning up to Limit (default 20) Records ordered by relevance.
func (i *Index) Search(ctx context.Context, text string, opts Options) ([]Record, error) {
	fields := []string{"name"}
	if opts.Description {
		fields = append(fields, "description")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	disj := bleve.NewDisjunctionQuery()
	for _, field := range fields {
		if opts.Fuzzy {
			fq := bleve.NewFuzzyQuery(text)
			fq.SetField(field)
			fq.Fuzziness = 1
			disj.AddQuery(fq)
		} else {
			mq := bleve.NewMatchQuery(text)
			mq.SetField(field)
			disj.AddQuery(mq)
		}
	}

	req := bleve.NewSearchRequest(disj)
	req.Size = limit
	req.Fields = []string{"name", "description", "version", "tap", "path"}

	result, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, brewerr.NewSearchError(text, err)
	}

	records := make([]Record, 0, len(result.Hits))
	for _, hit := range result.Hits {
		records = append(records, Record{
			Name:        stringField(hit.Fields, "name"),
			Description: stringField(hit.Fields, "description"),
			Version:     stringField(hit.Fields, "version"),
			Tap:         stringField(hit.Fields, "tap"),
			Path:        stringField(hit.Fields, "path"),
		})
	}
	return records, nil
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// Rebuild clears the index and repopulates it from every tap's
// Formula/ tree: unparseable .rb files are skipped silently. Per-tap
// scans run concurrently, bounded by maxConcurrentTapScans; the
// resulting documents are added in a single batch commit.
func (i *Index) Rebuild(ctx context.Context, taps []TapSource) error {
	if err := i.reset(); err != nil {
		return brewerr.NewSearchError("rebuild", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTapScans)

	perTap := make([][]Record, len(taps))
	for idx, tap := range taps {
		idx, tap := idx, tap
		g.Go(func() error {
			perTap[idx] = scanTap(tap)
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return brewerr.NewSearchError("rebuild", err)
	}

	batch := i.idx.NewBatch()
	for _, recs := range perTap {
		for _, r := range recs {
			if err := batch.Index(r.Tap+"/"+r.Name, r); err != nil {
				return brewerr.NewSearchError("rebuild", err)
			}
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return brewerr.NewSearchError("rebuild", err)
	}
	return nil
}

// reset discards the existing index contents and recreates a fresh,
// empty one with the same schema.
func (i *Index) reset() error {
	if err := i.idx.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(i.dir); err != nil {
		return err
	}
	idx, err := openOrCreate(i.dir)
	if err != nil {
		return err
	}
	i.idx = idx
	return nil
}

// scanTap walks tap's Formula/ subtree recursively, parsing every .rb
// file it finds and skipping any that fail to parse.
func scanTap(tap TapSource) []Record {
	formulaDir := filepath.Join(tap.Path, "Formula")
	if _, err := os.Stat(formulaDir); err != nil {
		return nil
	}

	var records []Record
	filepath.WalkDir(formulaDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".rb") {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f, err := formula.Parse(path, string(src))
		if err != nil {
			return nil
		}
		records = append(records, Record{
			Name:        f.Name,
			Description: f.Description,
			Version:     f.Version,
			Tap:         tap.Name,
			Path:        path,
		})
		return nil
	})
	return records
}
