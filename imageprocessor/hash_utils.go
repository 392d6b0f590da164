package imageprocessor

import (
	"fmt"
	"image"
	"sort"

	"github.com/corona10/goimagehash"

	"pixeldiff/raster"
	"pixeldiff/types"
)

// ImageHashes contains the perceptual hashes stored in the index
type ImageHashes struct {
	AverageHash    string
	PerceptualHash string
}

// ComputeHashes calculates the average and perception hashes of img
func ComputeHashes(img image.Image) (ImageHashes, error) {
	avg, err := goimagehash.AverageHash(img)
	if err != nil {
		return ImageHashes{}, fmt.Errorf("average hash: %w", err)
	}
	p, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return ImageHashes{}, fmt.Errorf("perception hash: %w", err)
	}
	return ImageHashes{AverageHash: avg.ToString(), PerceptualHash: p.ToString()}, nil
}

// ComputeRasterHashes renders r and hashes it
func ComputeRasterHashes(r raster.Raster) (ImageHashes, error) {
	if ir, ok := r.(*raster.ImageRaster); ok {
		return ComputeHashes(ir.Image())
	}
	img, err := raster.ToImage(r)
	if err != nil {
		return ImageHashes{}, err
	}
	return ComputeHashes(img)
}

// HashDistance returns the Hamming distance between two stored hashes of the
// same kind
func HashDistance(a, b string) (int, error) {
	ha, err := goimagehash.ImageHashFromString(a)
	if err != nil {
		return 0, err
	}
	hb, err := goimagehash.ImageHashFromString(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}

// HashMatch is an indexed image and its perceptual hash distance from a query
type HashMatch struct {
	Info     types.ImageInfo
	Distance int
}

// RankByHash returns the entries whose perceptual hash is within maxDistance
// of pHash, closest first. Entries with missing or malformed hashes are
// skipped.
func RankByHash(infos []types.ImageInfo, pHash string, maxDistance int) []HashMatch {
	var matches []HashMatch
	for _, info := range infos {
		if info.PerceptualHash == "" {
			continue
		}
		d, err := HashDistance(pHash, info.PerceptualHash)
		if err != nil || d > maxDistance {
			continue
		}
		matches = append(matches, HashMatch{Info: info, Distance: d})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches
}
