package imageprocessor

import (
	"path/filepath"
	"sort"
	"strings"
)

// FormatType represents a known image format type
type FormatType string

// Known image format constants
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatGIF     FormatType = "gif"
	FormatTIFF    FormatType = "tiff"
	FormatBMP     FormatType = "bmp"
	FormatWEBP    FormatType = "webp"
	FormatJP2     FormatType = "jp2"
	FormatPNM     FormatType = "pnm"
	FormatSunRas  FormatType = "sunras"
	FormatEXR     FormatType = "exr"
	FormatHDR     FormatType = "hdr"
)

// Map of extensions to format types
var formatExtensions = map[string]FormatType{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".jpe":  FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".bmp":  FormatBMP,
	".dib":  FormatBMP,
	".webp": FormatWEBP,

	// Decoded through OpenCV only
	".jp2": FormatJP2,
	".pbm": FormatPNM,
	".pgm": FormatPNM,
	".ppm": FormatPNM,
	".pnm": FormatPNM,
	".sr":  FormatSunRas,
	".ras": FormatSunRas,
	".exr": FormatEXR,
	".hdr": FormatHDR,
	".pic": FormatHDR,
}

// IsImageFile checks if a file is a supported image based on extension
func IsImageFile(path string) bool {
	return GetFileFormat(path) != FormatUnknown
}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(path string) FormatType {
	ext := strings.ToLower(filepath.Ext(path))
	format, exists := formatExtensions[ext]
	if !exists {
		return FormatUnknown
	}
	return format
}

// IsStandardFormat reports whether Go's image decoders handle the file
func IsStandardFormat(path string) bool {
	switch GetFileFormat(path) {
	case FormatJPEG, FormatPNG, FormatGIF, FormatTIFF, FormatBMP, FormatWEBP:
		return true
	}
	return false
}

// GetSupportedExtensions returns all supported image file extensions, sorted
func GetSupportedExtensions() []string {
	extensions := make([]string, 0, len(formatExtensions))
	for ext := range formatExtensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
