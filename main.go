package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"pixeldiff/config"
	"pixeldiff/database"
	"pixeldiff/diffengine"
	"pixeldiff/imageprocessor"
	"pixeldiff/logging"
	"pixeldiff/progress"
	"pixeldiff/ratio"
	"pixeldiff/raster"
	"pixeldiff/scanner"
	"pixeldiff/search"
	"pixeldiff/signalhandler"
	"pixeldiff/types"
	"pixeldiff/utils"
)

func main() {
	if len(os.Args) < 2 {
		utils.PrintUsage()
		os.Exit(1)
	}

	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	command := os.Args[1]
	cfg := config.Load()

	switch command {
	case "diff":
		handleDiffCommand(cfg, os.Args[2:])
	case "find":
		handleFindCommand(cfg, os.Args[2:])
	case "ratio":
		handleRatioCommand(cfg, os.Args[2:])
	case "index":
		handleIndexCommand(cfg, os.Args[2:])
	case "lookup":
		handleLookupCommand(cfg, os.Args[2:])
	case "stats":
		handleStatsCommand(cfg, os.Args[2:])
	case "help", "-h", "--help":
		utils.PrintUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}
}

// newFlagSet creates a flag set for a subcommand with the flags every
// command shares bound to cfg
func newFlagSet(name string, cfg *config.Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.IntVarP(&cfg.Verbosity, "verbosity", "v", cfg.Verbosity, "0 errors only, 1 warnings, 2 info, 3 debug, 4 trace")
	fs.StringVar(&cfg.LogFile, "logfile", cfg.LogFile, "Also append log messages to this file")
	fs.StringVar(&cfg.DatabasePath, "database", cfg.DatabasePath, "Path to the index database")
	fs.Usage = utils.PrintUsage
	return fs
}

// parseCommand parses args, validates the configuration and checks the
// number of positional arguments. It exits on any error.
func parseCommand(fs *pflag.FlagSet, cfg *config.Config, args []string, positional int) []string {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.Extensions = config.ParseExtensions(strings.Join(cfg.Extensions, ","))
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() != positional {
		fmt.Fprintf(os.Stderr, "Error: %s expects %d argument(s), got %d\n", fs.Name(), positional, fs.NArg())
		utils.PrintUsage()
		os.Exit(1)
	}
	return fs.Args()
}

// setupReporter builds the console reporter and attaches the log file
func setupReporter(cfg *config.Config) *logging.Reporter {
	rep := logging.New(os.Stderr, cfg.Verbosity)
	if cfg.LogFile != "" {
		if err := rep.SetupLogger(cfg.LogFile); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			rep.DebugLog("Logging to: %s", cfg.LogFile)
		}
	}
	return rep
}

// releaseRaster frees r, logging instead of failing when that goes wrong
func releaseRaster(r raster.Raster, path string, rep *logging.Reporter) {
	if err := raster.Release(r); err != nil {
		rep.LogWarning("Failed to release %s: %v", path, err)
	}
}

func handleDiffCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("diff", cfg)
	outPath := fs.StringP("out", "o", "", "Where to save the diff image (default: a generated name)")
	fs.StringVar(&cfg.NoChangeHex, "nochange-color", cfg.NoChangeHex, "Background color of the diff image")
	clearInStats := fs.Bool("clear-in-stats", false, "Count pixels not visible in both images as fully different")
	noImage := fs.Bool("no-image", false, "Only print the statistics")
	positional := parseCommand(fs, cfg, args, 2)
	basePath, headPath := positional[0], positional[1]

	rep := setupReporter(cfg)
	defer rep.Close()

	nochange, err := utils.ParseColor(cfg.NoChangeHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	registry := imageprocessor.NewImageLoaderRegistry()
	base, baseErr := registry.LoadRaster(basePath)
	if baseErr != nil {
		fmt.Fprintf(os.Stderr, "Error: base image is unreadable: %v\n", baseErr)
	} else {
		defer releaseRaster(base, basePath, rep)
	}
	head, headErr := registry.LoadRaster(headPath)
	if headErr != nil {
		fmt.Fprintf(os.Stderr, "Error: head image is unreadable: %v\n", headErr)
	} else {
		defer releaseRaster(head, headPath, rep)
	}
	if baseErr != nil || headErr != nil {
		os.Exit(1)
	}

	bw, bh := base.Size()
	hw, hh := head.Size()
	opts := diffengine.Options{
		Width:        max(bw, hw),
		Height:       max(bh, hh),
		NoChange:     nochange,
		ClearInStats: *clearInStats,
		Reporter:     rep,
	}
	if !*noImage {
		opts.Diff = raster.NewBuffer(opts.Width, opts.Height, raster.BandsRGBA, nochange)
	}

	result, err := diffengine.DiffImages(base, head, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))

	if result.Diff == nil {
		return
	}
	if *outPath == "" {
		*outPath = utils.GenerateDiffName(basePath, headPath, "")
	}
	if err := imageprocessor.SaveImage(result.Diff, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved diff image: %s\n", *outPath)
}

func handleFindCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("find", cfg)
	fs.IntVarP(&cfg.Limit, "limit", "n", cfg.Limit, "Number of matches to keep")
	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Number of images compared concurrently")
	fs.StringSliceVar(&cfg.Extensions, "ext", cfg.Extensions, "Candidate file extensions")
	resize := fs.Bool("resize", false, "Compare candidates of a different size after resizing")
	positional := parseCommand(fs, cfg, args, 2)
	refPath, dir := positional[0], positional[1]

	rep := setupReporter(cfg)
	defer rep.Close()

	ctx, cancel := signalhandler.SetupHandler(context.Background(), rep)
	defer cancel()

	if _, err := os.Stat(refPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: reference image %s: %v\n", refPath, err)
		os.Exit(1)
	}

	results := make(chan types.ProcessResult, 100)
	opts := search.Options{
		Loader:           imageprocessor.NewImageLoaderRegistry(),
		Limit:            cfg.Limit,
		Extensions:       cfg.Extensions,
		ResizeCandidates: *resize,
		Workers:          cfg.Workers,
		Reporter:         rep,
		Results:          results,
	}

	// The index only speeds things up, so a missing database is fine
	if _, err := os.Stat(cfg.DatabasePath); err == nil {
		db, err := database.OpenDatabase(cfg.DatabasePath)
		if err != nil {
			rep.LogWarning("Cannot open index %s: %v", cfg.DatabasePath, err)
		} else {
			defer db.Close()
			opts.SizeIndex = database.NewSizeIndex(db)
			rep.LogInfo("Using size index: %s", cfg.DatabasePath)
		}
	}

	startTime := time.Now()
	tracker := progress.NewTracker(os.Stderr, "Comparing", 0, results, rep)
	matches, err := search.FindSimilar(ctx, refPath, dir, opts)
	close(results)
	tracker.Stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("Search interrupted, showing partial results.")
	}

	fmt.Println("\nTop Matches:")
	if len(matches) == 0 {
		fmt.Println("No matches found.")
	}
	for i, m := range matches {
		fmt.Printf("%d. %.6f %s\n", i+1, m.MeanDiff, m.Path)
	}
	fmt.Printf("\nTotal search time: %v\n", time.Since(startTime).Round(time.Millisecond))
}

func handleRatioCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("ratio", cfg)
	maxSourceRatio := fs.Float64("max-source-ratio", 0, "Only report images whose base ratio is at most this value")
	excludes := fs.StringArray("exclude", nil, "Directory name to skip (repeatable)")
	patchify := fs.Bool("patchify", false, "Print commands that copy changed head images over base")
	positional := parseCommand(fs, cfg, args, 2)
	basePath, headPath := positional[0], positional[1]

	rep := setupReporter(cfg)
	defer rep.Close()

	ctx, cancel := signalhandler.SetupHandler(context.Background(), rep)
	defer cancel()

	sizes := imageprocessor.NewSizeReader()
	defer sizes.Close()

	excludeDirs := append(append([]string{}, cfg.ExcludeDirs...), *excludes...)
	fmt.Printf("* checking only: %v\n", ratio.DefaultExtensions)
	if len(excludeDirs) > 0 {
		fmt.Printf("* excluding directory names: %v\n", excludeDirs)
	} else {
		fmt.Println("* excluding no directory names")
	}

	result, err := ratio.Audit(ctx, basePath, headPath, ratio.Options{
		Sizes:          sizes,
		MaxSourceRatio: *maxSourceRatio,
		ExcludeDirs:    excludeDirs,
		Patchify:       *patchify,
		Reporter:       rep,
	})
	if result != nil {
		for _, f := range result.Findings {
			fmt.Println(f)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *patchify {
		fmt.Println()
		fmt.Println("# Prepatch commands (gather files from base)")
		for _, cmd := range result.PrepatchCommands {
			fmt.Println(cmd)
		}
		fmt.Println("# Patch commands (overwrite base with head)")
		for _, cmd := range result.PatchCommands {
			fmt.Println(cmd)
		}
	}
}

func handleIndexCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("index", cfg)
	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Number of images processed concurrently")
	fs.StringArrayVar(&cfg.ExcludeDirs, "exclude", cfg.ExcludeDirs, "Directory name to skip (repeatable)")
	forceRewrite := fs.Bool("force", false, "Reprocess files that are already indexed")
	positional := parseCommand(fs, cfg, args, 1)
	folderPath := positional[0]

	rep := setupReporter(cfg)
	defer rep.Close()

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot access folder path: %s (%v)\n", folderPath, err)
		os.Exit(1)
	}
	if !folderInfo.IsDir() {
		fmt.Fprintf(os.Stderr, "Path is not a directory: %s\n", folderPath)
		os.Exit(1)
	}

	ctx, cancel := signalhandler.SetupHandler(context.Background(), rep)
	defer cancel()

	// Initialize database with retry logic
	var db *sql.DB
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(cfg.DatabasePath, rep)
		if err == nil {
			break
		}
		if i < maxRetries-1 {
			rep.LogWarning("Error initializing database (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		} else {
			fmt.Fprintf(os.Stderr, "Error initializing database after %d attempts: %v\n", maxRetries, err)
			os.Exit(1)
		}
	}
	defer db.Close()

	startTime := time.Now()
	_, err = scanner.ScanAndStoreFolder(ctx, db, scanner.ScanOptions{
		FolderPath:   folderPath,
		ForceRewrite: *forceRewrite,
		MaxWorkers:   cfg.Workers,
		ExcludeDirs:  cfg.ExcludeDirs,
		Progress:     os.Stdout,
	}, imageprocessor.NewImageLoaderRegistry(), rep)
	if errors.Is(err, context.Canceled) {
		fmt.Println("Indexing interrupted.")
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning folder: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Total execution time: %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	if stats, err := database.GetScanStats(db); err == nil {
		printStats(stats)
	}
}

// openExistingDatabase opens the index or exits when it has not been built
func openExistingDatabase(dbPath string) *sql.DB {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Database does not exist: %s. Run the index command first.\n", dbPath)
		os.Exit(1)
	}
	db, err := database.OpenDatabase(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return db
}

func handleLookupCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("lookup", cfg)
	maxDistance := fs.Int("max-distance", 10, "Largest perceptual hash distance to report")
	positional := parseCommand(fs, cfg, args, 1)
	queryPath := positional[0]

	rep := setupReporter(cfg)
	defer rep.Close()

	db := openExistingDatabase(cfg.DatabasePath)
	defer db.Close()

	img, err := imageprocessor.NewImageLoaderRegistry().LoadRaster(queryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	hashes, err := imageprocessor.ComputeRasterHashes(img)
	releaseRaster(img, queryPath, rep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	infos, err := database.QueryPotentialMatches(db, 0, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	matches := imageprocessor.RankByHash(infos, hashes.PerceptualHash, *maxDistance)

	fmt.Printf("Indexed images within distance %d of %s:\n", *maxDistance, queryPath)
	if len(matches) == 0 {
		fmt.Println("No matches found.")
	}
	for i, m := range matches {
		fmt.Printf("%d. [%2d] %s (%dx%d)\n", i+1, m.Distance, m.Info.Path, m.Info.Width, m.Info.Height)
	}
}

func handleStatsCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("stats", cfg)
	parseCommand(fs, cfg, args, 0)

	db := openExistingDatabase(cfg.DatabasePath)
	defer db.Close()

	stats, err := database.GetScanStats(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	printStats(stats)
}

func printStats(stats *types.ScanStats) {
	fmt.Printf("\nSummary:\n")
	fmt.Printf("- Total images indexed: %d\n", stats.TotalImages)
	fmt.Printf("- Total size: %d bytes\n", stats.TotalBytes)
	fmt.Printf("- Unique image hashes: %d\n", stats.UniqueHashes)
	if stats.LastScan != "" {
		fmt.Printf("- Last indexed: %s\n", stats.LastScan)
	}
	formats := make([]string, 0, len(stats.Formats))
	for format := range stats.Formats {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	for _, format := range formats {
		fmt.Printf("- %s: %d\n", format, stats.Formats[format])
	}
}
