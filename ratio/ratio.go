// Package ratio audits a modified copy of an image tree against the original,
// listing new files and images whose aspect ratio changed.
package ratio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"pixeldiff/logging"
	"pixeldiff/utils"
)

var (
	// ErrSameDirectory is returned when base and head resolve to one directory.
	ErrSameDirectory = errors.New("base and head are the same directory")
	// ErrSameFile is returned when a head file resolves to its base counterpart.
	ErrSameFile = errors.New("head and base are same file")
	// ErrNotDirectory is returned when head is not a directory.
	ErrNotDirectory = errors.New("head must be a directory")
)

// DefaultExtensions are the image types checked when Options.Extensions is empty
var DefaultExtensions = []string{".png", ".jpg", ".bmp"}

// SizeReader reads image dimensions. *imageprocessor.SizeReader implements it.
type SizeReader interface {
	ReadSize(path string) (int, int, error)
}

// Kind classifies a finding
type Kind string

const (
	KindNewDir         Kind = "+new dir"
	KindNewFile        Kind = "+new file"
	KindUnreadable     Kind = "unreadable"
	KindUnreadableBase Kind = "unreadable in previous version"
	KindWider          Kind = "wider"
	KindNarrower       Kind = "narrower"
)

// Finding is one line of the audit checklist
type Finding struct {
	Kind  Kind
	Path  string
	Depth int
	Err   error
}

// String renders the finding as a markdown checklist item
func (f Finding) String() string {
	indent := strings.Repeat("  ", f.Depth)
	if f.Kind == KindNewDir {
		return fmt.Sprintf("%s- %-11s %s", indent, string(f.Kind)+":", f.Path)
	}
	return fmt.Sprintf("%s- [ ] %-11s %s", indent, string(f.Kind)+":", f.Path)
}

// Options controls an audit
type Options struct {
	Sizes      SizeReader
	Extensions []string
	// MaxSourceRatio, when positive, limits ratio findings to images whose
	// base ratio is at most this value.
	MaxSourceRatio float64
	ExcludeDirs    []string
	// Patchify collects commands that copy changed head images over base.
	Patchify bool
	Reporter *logging.Reporter
}

// Result collects everything an audit found
type Result struct {
	Findings         []Finding
	WiderImages      []string
	NarrowerImages   []string
	PrepatchCommands []string
	PatchCommands    []string
}

type auditor struct {
	opts   Options
	exts   []string
	result *Result
}

// Audit walks headPath recursively and compares every image with the file at
// the parallel path under basePath. basePath itself is never traversed, so
// images removed from head are not reported.
func Audit(ctx context.Context, basePath, headPath string, opts Options) (*Result, error) {
	if opts.Sizes == nil {
		return nil, errors.New("ratio audit requires a size reader")
	}
	base, err := realPath(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	head, err := realPath(headPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve head path: %w", err)
	}
	if base == head {
		return nil, fmt.Errorf("%w: %s", ErrSameDirectory, base)
	}

	a := &auditor{opts: opts, exts: opts.Extensions, result: &Result{}}
	if len(a.exts) == 0 {
		a.exts = DefaultExtensions
	}
	opts.Reporter.LogInfo("Checking only: %v", a.exts)
	if len(opts.ExcludeDirs) > 0 {
		opts.Reporter.LogInfo("Excluding directory names: %v", opts.ExcludeDirs)
	}

	if err := a.walk(ctx, base, head, 0); err != nil {
		return a.result, err
	}
	return a.result, nil
}

func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func (a *auditor) add(kind Kind, path string, depth int, err error) {
	a.result.Findings = append(a.result.Findings, Finding{Kind: kind, Path: path, Depth: depth, Err: err})
}

func (a *auditor) walk(ctx context.Context, base, head string, depth int) error {
	if !isDir(head) {
		return fmt.Errorf("%w: %s", ErrNotDirectory, head)
	}
	entries, err := os.ReadDir(head)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", head, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		baseSub := filepath.Join(base, name)
		headSub := filepath.Join(head, name)

		if isDir(headSub) {
			if slices.Contains(a.opts.ExcludeDirs, name) {
				continue
			}
			subDepth := depth
			if !isDir(baseSub) {
				a.add(KindNewDir, headSub, depth, nil)
				subDepth++
			}
			if err := a.walk(ctx, baseSub, headSub, subDepth); err != nil {
				return err
			}
			continue
		}

		if !slices.Contains(a.exts, strings.ToLower(filepath.Ext(name))) {
			continue
		}
		if !isFile(baseSub) {
			a.add(KindNewFile, headSub, depth, nil)
			continue
		}
		if err := a.compare(baseSub, headSub, depth); err != nil {
			return err
		}
	}
	return nil
}

func ratioOf(w, h int) float64 {
	if h == 0 {
		return 0
	}
	return float64(w) / float64(h)
}

func (a *auditor) compare(baseSub, headSub string, depth int) error {
	baseReal, errBase := realPath(baseSub)
	headReal, errHead := realPath(headSub)
	if errBase == nil && errHead == nil && baseReal == headReal {
		return fmt.Errorf("%w: %s", ErrSameFile, headSub)
	}

	hw, hh, err := a.opts.Sizes.ReadSize(headSub)
	if err != nil {
		a.opts.Reporter.LogWarning("Unreadable head image %s: %v", headSub, err)
		a.add(KindUnreadable, headSub, depth, err)
		return nil
	}
	bw, bh, err := a.opts.Sizes.ReadSize(baseSub)
	if err != nil {
		a.opts.Reporter.LogWarning("Unreadable base image %s: %v", baseSub, err)
		a.add(KindUnreadableBase, headSub, depth, err)
		return nil
	}

	headRatio, baseRatio := ratioOf(hw, hh), ratioOf(bw, bh)
	if headRatio == baseRatio {
		return nil
	}
	if a.opts.MaxSourceRatio > 0 && baseRatio > a.opts.MaxSourceRatio {
		return nil
	}
	if headRatio > baseRatio {
		a.add(KindWider, headSub, depth, nil)
		a.result.WiderImages = append(a.result.WiderImages, headSub)
	} else {
		a.add(KindNarrower, headSub, depth, nil)
		a.result.NarrowerImages = append(a.result.NarrowerImages, headSub)
	}

	if a.opts.Patchify {
		a.patchify(baseSub, headSub)
	}
	return nil
}

// patchify records a prepatch command that gathers the base file and a copy
// command that overwrites base with head
func (a *auditor) patchify(baseSub, headSub string) {
	marker := string(filepath.Separator) + "mods" + string(filepath.Separator)
	baseI := strings.Index(baseSub, marker)
	headI := strings.Index(headSub, marker)
	if baseI < 0 || headI < 0 {
		a.opts.Reporter.LogError("There is no /mods/ in the path (base=%q, head=%q)", baseSub, headSub)
		return
	}

	baseRel := baseSub[baseI+1:]
	baseDiff, headDiff, _ := utils.FirstDifferentSubdirs(baseSub, headSub)
	a.result.PrepatchCommands = append(a.result.PrepatchCommands,
		fmt.Sprintf("prepatch %s %s-vs-%s", utils.SafePathParam(baseRel), baseDiff, headDiff))
	a.result.PatchCommands = append(a.result.PatchCommands,
		fmt.Sprintf("%s %s %s", utils.PlatformCmds["cp"], utils.SafePathParam(headSub), utils.SafePathParam(baseSub)))
}
