package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"pixeldiff/imageprocessor"
	"pixeldiff/pixel"
)

// GetDefaultDatabasePath returns the default path for the index database
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "images.db"
	}

	return filepath.Join(filepath.Dir(exePath), "images.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s diff BASE HEAD [--out=PATH] [--nochange-color=HEX] [--clear-in-stats]\n", os.Args[0])
	fmt.Printf("  %s find IMAGE DIR [--limit=N] [--ext=.png,.jpg] [--workers=N] [--database=PATH]\n", os.Args[0])
	fmt.Printf("  %s ratio BASE_DIR HEAD_DIR [--max-source-ratio=R] [--exclude=NAME ...] [--patchify]\n", os.Args[0])
	fmt.Printf("  %s index DIR [--database=PATH] [--force] [--workers=N]\n", os.Args[0])
	fmt.Printf("  %s lookup IMAGE [--database=PATH] [--max-distance=N]\n", os.Args[0])
	fmt.Printf("  %s stats [--database=PATH]\n", os.Args[0])
	fmt.Printf("\nCommon parameters:\n")
	fmt.Printf("  --verbosity   : 0 errors only, 1 warnings, 2 info, 3 debug, 4 trace (default: 1)\n")
	fmt.Printf("  --logfile     : Also append log messages to this file\n")
	fmt.Printf("  --database    : Path to index database (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("  --ext         : Comma separated extensions to search (default: all supported)\n")
	fmt.Printf("\nSupported extensions:\n  %s\n", strings.Join(imageprocessor.GetSupportedExtensions(), " "))
	fmt.Printf("\nEnvironment:\n")
	fmt.Printf("  PIXELDIFF_DB, PIXELDIFF_LOGFILE, PIXELDIFF_VERBOSITY, PIXELDIFF_WORKERS,\n")
	fmt.Printf("  PIXELDIFF_LIMIT, PIXELDIFF_EXTENSIONS, PIXELDIFF_EXCLUDE_DIRS, PIXELDIFF_NOCHANGE_COLOR\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s diff old/grass.png new/grass.png --out=grass-diff.png\n", os.Args[0])
	fmt.Printf("  %s find sprite.png ~/games/textures --limit=5\n", os.Args[0])
	fmt.Printf("  %s ratio ../bucket_game-200527 bucket_game --exclude=src --max-source-ratio=.5\n", os.Args[0])
}

// ParseColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA" into an 8-bit RGBA color
func ParseColor(s string) (pixel.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	alpha := 255
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid alpha in color %q: %w", s, err)
		}
		alpha = int(a)
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return pixel.Color{int(r), int(g), int(b), alpha}, nil
}
