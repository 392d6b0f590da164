package types

// ImageInfo holds the indexed metadata of one image file
type ImageInfo struct {
	ID             int64  `json:"id"`
	Path           string `json:"path"`
	Format         string `json:"format"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	CreatedAt      string `json:"created_at"`
	ModifiedAt     string `json:"modified_at"`
	Size           int64  `json:"size"`
	AverageHash    string `json:"average_hash"`
	PerceptualHash string `json:"perceptual_hash"`
}

// MatchRecord is one search result: a candidate path and its mean difference
// from the reference image
type MatchRecord struct {
	MeanDiff float64 `json:"mean_diff"`
	Path     string  `json:"path"`
}

// ProcessResult holds the outcome of handling one file
type ProcessResult struct {
	Path    string
	Success bool
	Skipped bool
	Error   error
}

// ScanStats summarizes the contents of the index
type ScanStats struct {
	TotalImages  int
	TotalBytes   int64
	UniqueHashes int
	Formats      map[string]int
	LastScan     string
}
