// Package search ranks the images under a directory by how closely they
// match a reference image, pixel for pixel.
package search

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pixeldiff/diffengine"
	"pixeldiff/logging"
	"pixeldiff/raster"
	"pixeldiff/types"
)

// ErrResizeNotImplemented is returned when candidates of a different size
// would have to be resized before comparison.
var ErrResizeNotImplemented = errors.New("comparing images of different sizes requires resizing, which is not implemented")

// DefaultLimit is the number of matches kept when Options.Limit is zero.
const DefaultLimit = 10

// DefaultExtensions are the candidate extensions used when none are given.
var DefaultExtensions = []string{".png", ".jpg", ".bmp"}

// Loader opens an image file as a raster.
type Loader interface {
	LoadRaster(path string) (raster.Raster, error)
}

// SizeIndex reports previously recorded dimensions of a file. ok is false
// when the index has no entry newer than modTime.
type SizeIndex interface {
	LookupSize(path string, modTime time.Time) (width, height int, ok bool)
}

// Options configures FindSimilar.
type Options struct {
	Loader     Loader
	Limit      int
	Extensions []string
	// ResizeCandidates requests comparing candidates of a different size.
	ResizeCandidates bool
	// Workers > 1 evaluates candidates concurrently. Results are the same as
	// a sequential scan.
	Workers   int
	SizeIndex SizeIndex
	Reporter  *logging.Reporter
	// Results, when set, receives one entry per evaluated candidate.
	Results chan<- types.ProcessResult
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// FindSimilar loads the reference image and returns the closest matches
// found under dir, most similar first. When ctx is canceled the matches
// found so far are returned along with the context error.
func FindSimilar(ctx context.Context, refPath, dir string, opts Options) ([]types.MatchRecord, error) {
	if opts.ResizeCandidates {
		return nil, ErrResizeNotImplemented
	}
	if opts.Loader == nil {
		return nil, errors.New("search: no loader configured")
	}
	opts = opts.withDefaults()

	ref, err := opts.Loader.LoadRaster(refPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference image %s: %w", refPath, err)
	}
	defer release(ref, refPath, opts.Reporter)
	opts.Reporter.LogInfo("loaded %q", refPath)

	list := NewMatchList(opts.Limit)
	err = Populate(ctx, refPath, ref, dir, list, opts)
	return list.Matches(), err
}

// Populate adds the matches for ref found under dir to list. refPath is only
// used to recognize the reference among the candidates.
func Populate(ctx context.Context, refPath string, ref raster.Raster, dir string, list *MatchList, opts Options) error {
	if opts.ResizeCandidates {
		return ErrResizeNotImplemented
	}
	opts = opts.withDefaults()
	rep := opts.Reporter

	ref, err := raster.AsRGBA(ref)
	if err != nil {
		return fmt.Errorf("convert reference: %w", err)
	}
	if abs, err := filepath.Abs(refPath); err == nil {
		refPath = abs
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	s := &scan{ref: ref, refPath: refPath, opts: opts, rep: rep, root: dir, visited: make(map[string]bool)}
	var candidates []string
	if err := s.collect(ctx, dir, &candidates); err != nil {
		return err
	}
	rep.DebugLog("found %d candidate(s) under %s", len(candidates), dir)

	if opts.Workers > 1 {
		return s.evaluateParallel(ctx, candidates, list)
	}
	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m, ok := s.evaluate(path); ok {
			list.Insert(m)
		}
	}
	return nil
}

// readDir is replaced in tests to simulate unreadable directories
var readDir = os.ReadDir

type scan struct {
	ref     raster.Raster
	refPath string
	opts    Options
	rep     *logging.Reporter
	root    string
	// visited holds the resolved path of every directory already walked
	visited map[string]bool
}

// collect walks dir in lexical order, appending every candidate file.
// Names starting with "." are skipped at every level. Only an unreadable
// root is an error; unreadable subdirectories are logged and skipped.
func (s *scan) collect(ctx context.Context, dir string, candidates *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	if s.visited[resolved] {
		s.rep.DebugLog("skipping %s: %s was already searched", dir, resolved)
		return nil
	}
	s.visited[resolved] = true

	entries, err := readDir(dir)
	if err != nil {
		if dir == s.root {
			return fmt.Errorf("failed to read directory %s: %w", dir, err)
		}
		s.rep.LogWarning("skipping unreadable directory %s: %v", dir, err)
		return nil
	}
	inRefDir := filepath.Dir(s.refPath) == dir
	if inRefDir {
		s.rep.TraceLog("checking %s", dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		if isDir(entry, path) {
			if err := s.collect(ctx, path, candidates); err != nil {
				return err
			}
			continue
		}
		ext := filepath.Ext(name)
		if !hasExtension(ext, s.opts.Extensions) {
			if path == s.refPath {
				s.rep.LogError("skipped extension %q of the reference image itself", ext)
			} else if inRefDir {
				s.rep.DebugLog("%s's extension is not in %v", name, s.opts.Extensions)
			}
			continue
		}
		*candidates = append(*candidates, path)
	}
	return nil
}

func isDir(entry fs.DirEntry, path string) bool {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
	return entry.IsDir()
}

func hasExtension(ext string, extensions []string) bool {
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// evaluate compares one candidate with the reference. ok is false when the
// candidate was skipped.
func (s *scan) evaluate(path string) (types.MatchRecord, bool) {
	m, skipped, err := s.compare(path)
	if s.opts.Results != nil {
		s.opts.Results <- types.ProcessResult{Path: path, Success: err == nil, Skipped: skipped, Error: err}
	}
	if err != nil {
		s.rep.LogWarning("%s: %v", path, err)
		return m, false
	}
	return m, !skipped
}

func (s *scan) compare(path string) (types.MatchRecord, bool, error) {
	refW, refH := s.ref.Size()

	if s.opts.SizeIndex != nil {
		if info, err := os.Stat(path); err == nil {
			if w, h, ok := s.opts.SizeIndex.LookupSize(path, info.ModTime()); ok && (w != refW || h != refH) {
				s.rep.TraceLog("skipping %s: indexed size %dx%d", path, w, h)
				return types.MatchRecord{}, true, nil
			}
		}
	}

	head, err := s.opts.Loader.LoadRaster(path)
	if err != nil {
		return types.MatchRecord{}, false, fmt.Errorf("error opening: %w", err)
	}
	defer release(head, path, s.rep)
	w, h := head.Size()
	if w != refW || h != refH {
		return types.MatchRecord{}, true, nil
	}

	res, err := diffengine.DiffImages(s.ref, head, diffengine.Options{
		Width:    w,
		Height:   h,
		Reporter: s.rep,
	})
	if err != nil {
		return types.MatchRecord{}, false, err
	}
	mean, err := res.Mean()
	if err != nil {
		return types.MatchRecord{}, false, err
	}

	if path == s.refPath {
		if mean != 0 {
			s.rep.LogWarning("mean difference for the reference itself is %v (should be 0)", mean)
		} else {
			s.rep.LogInfo("found the reference itself (not a genuine match): %s", path)
		}
	}
	return types.MatchRecord{MeanDiff: mean, Path: path}, false, nil
}

// evaluateParallel compares candidates on a bounded pool and inserts the
// results in walk order.
func (s *scan) evaluateParallel(ctx context.Context, candidates []string, list *MatchList) error {
	type outcome struct {
		match types.MatchRecord
		ok    bool
		done  bool
	}
	outcomes := make([]outcome, len(candidates))
	semaphore := make(chan struct{}, s.opts.Workers)
	var wg sync.WaitGroup

	var ctxErr error
	for i, path := range candidates {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		semaphore <- struct{}{}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			m, ok := s.evaluate(path)
			outcomes[i] = outcome{match: m, ok: ok, done: true}
		}(i, path)
	}
	wg.Wait()

	for _, o := range outcomes {
		if !o.done {
			break
		}
		if o.ok {
			list.Insert(o.match)
		}
	}
	return ctxErr
}

// release frees r and logs a failure to do so
func release(r raster.Raster, path string, rep *logging.Reporter) {
	if err := raster.Release(r); err != nil {
		rep.LogWarning("failed to release %s: %v", path, err)
	}
}
