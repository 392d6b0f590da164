package search

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pixeldiff/pixel"
	"pixeldiff/raster"
	"pixeldiff/types"
)

// fakeLoader serves rasters by file name and records which files it opened.
type fakeLoader struct {
	mu      sync.Mutex
	rasters map[string]raster.Raster
	opened  []string
}

func (l *fakeLoader) LoadRaster(path string) (raster.Raster, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, filepath.Base(path))
	r, ok := l.rasters[filepath.Base(path)]
	if !ok {
		return nil, errors.New("cannot identify image file")
	}
	return r, nil
}

func gray(w, h, v int) raster.Raster {
	return raster.NewBuffer(w, h, raster.BandsRGBA, pixel.Color{v, v, v, 255})
}

// setup creates empty files for every name and returns the directory.
func setup(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func names(matches []types.MatchRecord) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Base(m.Path)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindSimilarRanksAndBounds(t *testing.T) {
	dir := setup(t, "ref.png", "a.png", "b.png", "sub/c.png", "d.png")
	loader := &fakeLoader{rasters: map[string]raster.Raster{
		"ref.png": gray(2, 2, 100),
		"a.png":   gray(2, 2, 150),
		"b.png":   gray(2, 2, 110),
		"c.png":   gray(2, 2, 101),
		"d.png":   gray(2, 2, 255),
	}}

	matches, err := FindSimilar(context.Background(), filepath.Join(dir, "ref.png"), dir,
		Options{Loader: loader, Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ref.png", "c.png", "b.png"}
	if got := names(matches); !equalStrings(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
	if matches[0].MeanDiff != 0 {
		t.Errorf("self MeanDiff = %v, want 0", matches[0].MeanDiff)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].MeanDiff < matches[i-1].MeanDiff {
			t.Errorf("matches not sorted: %v", matches)
		}
	}
}

func TestFindSimilarSkipsHiddenUnreadableAndMismatched(t *testing.T) {
	dir := setup(t, "ref.png", ".hidden.png", ".git/x.png", "broken.png", "big.png", "notes.txt", "UPPER.PNG")
	loader := &fakeLoader{rasters: map[string]raster.Raster{
		"ref.png":     gray(2, 2, 0),
		".hidden.png": gray(2, 2, 0),
		"x.png":       gray(2, 2, 0),
		"big.png":     gray(3, 3, 0),
		"notes.txt":   gray(2, 2, 0),
		"UPPER.PNG":   gray(2, 2, 50),
	}}

	matches, err := FindSimilar(context.Background(), filepath.Join(dir, "ref.png"), dir,
		Options{Loader: loader})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ref.png", "UPPER.PNG"}
	if got := names(matches); !equalStrings(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
	for _, name := range loader.opened {
		if name == ".hidden.png" || name == "x.png" || name == "notes.txt" {
			t.Errorf("opened %s, which should have been skipped", name)
		}
	}
}

// failReadDir makes readDir fail for directories named name, or for every
// directory when name is empty.
func failReadDir(t *testing.T, name string) {
	t.Helper()
	orig := readDir
	readDir = func(dir string) ([]os.DirEntry, error) {
		if name == "" || filepath.Base(dir) == name {
			return nil, fs.ErrPermission
		}
		return orig(dir)
	}
	t.Cleanup(func() { readDir = orig })
}

func TestFindSimilarSkipsUnreadableSubdirectory(t *testing.T) {
	dir := setup(t, "ref.png", "a.png", "locked/b.png", "open/c.png")
	loader := &fakeLoader{rasters: map[string]raster.Raster{
		"ref.png": gray(2, 2, 0),
		"a.png":   gray(2, 2, 20),
		"b.png":   gray(2, 2, 10),
		"c.png":   gray(2, 2, 30),
	}}
	failReadDir(t, "locked")

	matches, err := FindSimilar(context.Background(), filepath.Join(dir, "ref.png"), dir,
		Options{Loader: loader})
	if err != nil {
		t.Fatalf("FindSimilar() error = %v, want nil", err)
	}
	want := []string{"ref.png", "a.png", "c.png"}
	if got := names(matches); !equalStrings(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
}

func TestFindSimilarUnreadableRoot(t *testing.T) {
	dir := setup(t, "ref.png")
	loader := &fakeLoader{rasters: map[string]raster.Raster{"ref.png": gray(1, 1, 0)}}
	failReadDir(t, "")

	_, err := FindSimilar(context.Background(), filepath.Join(dir, "ref.png"), dir,
		Options{Loader: loader})
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("error = %v, want fs.ErrPermission", err)
	}
}

func TestFindSimilarSymlinkLoop(t *testing.T) {
	dir := setup(t, "ref.png", "a.png")
	if err := os.Symlink(".", filepath.Join(dir, "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	loader := &fakeLoader{rasters: map[string]raster.Raster{
		"ref.png": gray(1, 1, 0),
		"a.png":   gray(1, 1, 51),
	}}

	matches, err := FindSimilar(context.Background(), filepath.Join(dir, "ref.png"), dir,
		Options{Loader: loader})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ref.png", "a.png"}
	if got := names(matches); !equalStrings(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
}

// closingRaster records Close calls and fails them with err.
type closingRaster struct {
	raster.Raster
	closed bool
	err    error
}

func (c *closingRaster) Close() error {
	c.closed = true
	return c.err
}

func TestFindSimilarReleasesCandidates(t *testing.T) {
	dir := setup(t, "ref.png", "a.png")
	candidate := &closingRaster{Raster: gray(1, 1, 51), err: errors.New("already freed")}
	loader := &fakeLoader{rasters: map[string]raster.Raster{
		"ref.png": gray(1, 1, 0),
		"a.png":   candidate,
	}}

	matches, err := FindSimilar(context.Background(), filepath.Join(dir, "ref.png"), dir,
		Options{Loader: loader})
	if err != nil {
		t.Fatal(err)
	}
	if !candidate.closed {
		t.Error("candidate raster was not released")
	}
	want := []string{"ref.png", "a.png"}
	if got := names(matches); !equalStrings(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
}

func TestFindSimilarTiesKeepWalkOrder(t *testing.T) {
	dir := setup(t, "ref.png", "a.png", "b.png", "c.png")
	loader := &fakeLoader{rasters: map[string]raster.Raster{
		"ref.png": gray(1, 1, 0),
		"a.png":   gray(1, 1, 51),
		"b.png":   gray(1, 1, 51),
		"c.png":   gray(1, 1, 51),
	}}
	matches, err := FindSimilar(context.Background(), filepath.Join(dir, "ref.png"), dir,
		Options{Loader: loader, Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ref.png", "a.png", "b.png"}
	if got := names(matches); !equalStrings(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
}

func TestFindSimilarResizeNotImplemented(t *testing.T) {
	loader := &fakeLoader{}
	_, err := FindSimilar(context.Background(), "ref.png", t.TempDir(),
		Options{Loader: loader, ResizeCandidates: true})
	if !errors.Is(err, ErrResizeNotImplemented) {
		t.Errorf("error = %v, want ErrResizeNotImplemented", err)
	}
	if len(loader.opened) != 0 {
		t.Errorf("opened %v before failing", loader.opened)
	}
}

func TestFindSimilarUnreadableReference(t *testing.T) {
	_, err := FindSimilar(context.Background(), "missing.png", t.TempDir(),
		Options{Loader: &fakeLoader{}})
	if err == nil {
		t.Error("expected an error for an unreadable reference")
	}
}

func TestFindSimilarParallelMatchesSequential(t *testing.T) {
	files := []string{"ref.png"}
	rasters := map[string]raster.Raster{"ref.png": gray(2, 2, 128)}
	for i := 0; i < 20; i++ {
		name := string(rune('a'+i)) + ".png"
		files = append(files, name)
		rasters[name] = gray(2, 2, (i*37)%256)
	}
	dir := setup(t, files...)
	ref := filepath.Join(dir, "ref.png")

	seq, err := FindSimilar(context.Background(), ref, dir, Options{Loader: &fakeLoader{rasters: rasters}, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	par, err := FindSimilar(context.Background(), ref, dir, Options{Loader: &fakeLoader{rasters: rasters}, Limit: 5, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(names(seq), names(par)) {
		t.Errorf("parallel = %v, sequential = %v", names(par), names(seq))
	}
}

type fakeSizeIndex map[string][2]int

func (f fakeSizeIndex) LookupSize(path string, _ time.Time) (int, int, bool) {
	s, ok := f[filepath.Base(path)]
	return s[0], s[1], ok
}

func TestFindSimilarUsesSizeIndex(t *testing.T) {
	dir := setup(t, "ref.png", "wide.png", "same.png")
	loader := &fakeLoader{rasters: map[string]raster.Raster{
		"ref.png":  gray(2, 2, 0),
		"wide.png": gray(4, 2, 0),
		"same.png": gray(2, 2, 0),
	}}
	index := fakeSizeIndex{"wide.png": {4, 2}, "same.png": {2, 2}}

	results := make(chan types.ProcessResult, 10)
	matches, err := FindSimilar(context.Background(), filepath.Join(dir, "ref.png"), dir,
		Options{Loader: loader, SizeIndex: index, Results: results})
	close(results)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(matches); !equalStrings(got, []string{"ref.png", "same.png"}) {
		t.Errorf("matches = %v", got)
	}
	for _, name := range loader.opened {
		if name == "wide.png" {
			t.Error("wide.png was opened despite its indexed size")
		}
	}
	var skipped int
	for r := range results {
		if r.Skipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestFindSimilarCanceled(t *testing.T) {
	dir := setup(t, "ref.png", "a.png")
	loader := &fakeLoader{rasters: map[string]raster.Raster{
		"ref.png": gray(1, 1, 0),
		"a.png":   gray(1, 1, 0),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	matches, err := FindSimilar(ctx, filepath.Join(dir, "ref.png"), dir, Options{Loader: loader})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %v, want none", matches)
	}
}

func TestMatchListInsert(t *testing.T) {
	l := NewMatchList(3)
	for i, d := range []float64{0.5, 0.2, 0.9, 0.1, 0.95, 0.2} {
		l.Insert(types.MatchRecord{MeanDiff: d, Path: string(rune('a' + i))})
	}
	got := l.Matches()
	want := []types.MatchRecord{
		{MeanDiff: 0.1, Path: "d"},
		{MeanDiff: 0.2, Path: "b"},
		{MeanDiff: 0.2, Path: "f"},
	}
	if len(got) != len(want) {
		t.Fatalf("Matches() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Matches()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if l.Insert(types.MatchRecord{MeanDiff: 0.3, Path: "late"}) {
		t.Error("Insert into a full list with a worse match should fail")
	}
}

func TestMatchListZeroLimit(t *testing.T) {
	l := NewMatchList(0)
	l.Insert(types.MatchRecord{MeanDiff: 0, Path: "x"})
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}
