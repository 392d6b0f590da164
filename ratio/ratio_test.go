package ratio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"pixeldiff/logging"
)

type fakeSizes map[string][2]int

func (f fakeSizes) ReadSize(path string) (int, int, error) {
	size, ok := f[path]
	if !ok {
		return 0, 0, errors.New("cannot decode")
	}
	return size[0], size[1], nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// tree builds base and head directories and returns their resolved paths
func tree(t *testing.T, root string, files ...string) (string, string) {
	t.Helper()
	base := filepath.Join(root, "base")
	head := filepath.Join(root, "head")
	for _, f := range files {
		touch(t, filepath.Join(root, f))
	}
	for _, d := range []string{base, head} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	base, _ = filepath.EvalSymlinks(base)
	head, _ = filepath.EvalSymlinks(head)
	return base, head
}

func TestAuditFindings(t *testing.T) {
	base, head := tree(t, t.TempDir(),
		"base/a.png", "base/b.png", "base/c.png", "base/e.png", "base/f.png", "base/notes.txt",
		"head/a.png", "head/b.png", "head/c.png", "head/d.png", "head/e.png", "head/f.png",
		"head/.hidden.png", "head/extra/g.png", "head/src/x.png", "head/notes.txt",
	)
	sizes := fakeSizes{
		filepath.Join(base, "a.png"): {1, 1},
		filepath.Join(head, "a.png"): {2, 1},
		filepath.Join(base, "b.png"): {2, 1},
		filepath.Join(head, "b.png"): {1, 1},
		filepath.Join(base, "c.png"): {16, 16},
		filepath.Join(head, "c.png"): {32, 32},
		filepath.Join(head, "e.png"): {1, 1},
		filepath.Join(base, "f.png"): {1, 1},
	}

	result, err := Audit(context.Background(), base, head, Options{
		Sizes:       sizes,
		ExcludeDirs: []string{"src"},
		Reporter:    logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Audit error: %v", err)
	}

	want := []Finding{
		{Kind: KindWider, Path: filepath.Join(head, "a.png")},
		{Kind: KindNarrower, Path: filepath.Join(head, "b.png")},
		{Kind: KindNewFile, Path: filepath.Join(head, "d.png")},
		{Kind: KindUnreadableBase, Path: filepath.Join(head, "e.png")},
		{Kind: KindNewDir, Path: filepath.Join(head, "extra")},
		{Kind: KindNewFile, Path: filepath.Join(head, "extra", "g.png"), Depth: 1},
		{Kind: KindUnreadable, Path: filepath.Join(head, "f.png")},
	}
	if len(result.Findings) != len(want) {
		t.Fatalf("got %d findings, want %d: %v", len(result.Findings), len(want), result.Findings)
	}
	for i, w := range want {
		got := result.Findings[i]
		if got.Kind != w.Kind || got.Path != w.Path || got.Depth != w.Depth {
			t.Errorf("finding %d = %+v, want %+v", i, got, w)
		}
	}

	if !slices.Equal(result.WiderImages, []string{filepath.Join(head, "a.png")}) {
		t.Errorf("WiderImages = %v", result.WiderImages)
	}
	if !slices.Equal(result.NarrowerImages, []string{filepath.Join(head, "b.png")}) {
		t.Errorf("NarrowerImages = %v", result.NarrowerImages)
	}
	if len(result.PatchCommands) != 0 {
		t.Errorf("PatchCommands = %v, want none without patchify", result.PatchCommands)
	}
}

func TestAuditMaxSourceRatio(t *testing.T) {
	base, head := tree(t, t.TempDir(),
		"base/tall.png", "base/wide.png", "head/tall.png", "head/wide.png")
	sizes := fakeSizes{
		filepath.Join(base, "tall.png"): {1, 4},
		filepath.Join(head, "tall.png"): {1, 1},
		filepath.Join(base, "wide.png"): {4, 1},
		filepath.Join(head, "wide.png"): {8, 1},
	}
	result, err := Audit(context.Background(), base, head, Options{
		Sizes:          sizes,
		MaxSourceRatio: 0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(result.WiderImages, []string{filepath.Join(head, "tall.png")}) {
		t.Errorf("WiderImages = %v, want only tall.png", result.WiderImages)
	}
}

func TestAuditPatchify(t *testing.T) {
	root := t.TempDir()
	base, head := tree(t, root,
		"base/game-old/mods/wool/textures/wool red.png",
		"head/game/mods/wool/textures/wool red.png",
		"base/flat/a.png",
		"head/flat/a.png",
	)
	baseImg := filepath.Join(base, "game-old", "mods", "wool", "textures", "wool red.png")
	headImg := filepath.Join(head, "game", "mods", "wool", "textures", "wool red.png")
	sizes := fakeSizes{
		baseImg:                             {16, 16},
		headImg:                             {32, 16},
		filepath.Join(base, "flat", "a.png"): {1, 1},
		filepath.Join(head, "flat", "a.png"): {1, 2},
	}

	result, err := Audit(context.Background(), filepath.Join(base, "game-old"), filepath.Join(head, "game"), Options{
		Sizes:    sizes,
		Patchify: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	wantPrepatch := "prepatch 'mods/wool/textures/wool red.png' game-old-vs-game"
	if !slices.Equal(result.PrepatchCommands, []string{wantPrepatch}) {
		t.Errorf("PrepatchCommands = %q, want %q", result.PrepatchCommands, wantPrepatch)
	}
	if len(result.PatchCommands) != 1 {
		t.Fatalf("PatchCommands = %q", result.PatchCommands)
	}
	if !strings.Contains(result.PatchCommands[0], "'"+headImg+"' '"+baseImg+"'") {
		t.Errorf("PatchCommands[0] = %q, want head copied over base", result.PatchCommands[0])
	}

	// Without a mods directory nothing is emitted.
	result, err = Audit(context.Background(), filepath.Join(base, "flat"), filepath.Join(head, "flat"), Options{
		Sizes:    sizes,
		Patchify: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.NarrowerImages) != 1 || len(result.PatchCommands) != 0 {
		t.Errorf("narrower = %v, patch = %v", result.NarrowerImages, result.PatchCommands)
	}
}

func TestAuditSameDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := Audit(context.Background(), dir, dir+string(filepath.Separator)+".", Options{Sizes: fakeSizes{}})
	if !errors.Is(err, ErrSameDirectory) {
		t.Errorf("error = %v, want ErrSameDirectory", err)
	}
}

func TestAuditSameFileThroughSymlink(t *testing.T) {
	root := t.TempDir()
	base, head := tree(t, root, "base/a.png")
	if err := os.Symlink(filepath.Join(base, "a.png"), filepath.Join(head, "a.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	_, err := Audit(context.Background(), base, head, Options{Sizes: fakeSizes{}})
	if !errors.Is(err, ErrSameFile) {
		t.Errorf("error = %v, want ErrSameFile", err)
	}
}

func TestAuditHeadNotDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "file.png"))
	_, err := Audit(context.Background(), root, filepath.Join(root, "file.png"), Options{Sizes: fakeSizes{}})
	if !errors.Is(err, ErrNotDirectory) {
		t.Errorf("error = %v, want ErrNotDirectory", err)
	}
}

func TestFindingString(t *testing.T) {
	tests := []struct {
		f    Finding
		want string
	}{
		{Finding{Kind: KindWider, Path: "p.png"}, "- [ ] wider:      p.png"},
		{Finding{Kind: KindNarrower, Path: "p.png", Depth: 1}, "  - [ ] narrower:   p.png"},
		{Finding{Kind: KindNewFile, Path: "p.png"}, "- [ ] +new file:  p.png"},
		{Finding{Kind: KindNewDir, Path: "d"}, "- +new dir:   d"},
	}
	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
