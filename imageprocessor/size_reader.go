package imageprocessor

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/barasher/go-exiftool"
)

// SizeReader reads image dimensions without decoding pixel data. It tries
// the registered Go decoders first and falls back to exiftool metadata,
// which covers formats only OpenCV can decode.
type SizeReader struct {
	once    sync.Once
	mu      sync.Mutex
	et      *exiftool.Exiftool
	initErr error
}

// NewSizeReader creates a size reader. exiftool is only started on first use.
func NewSizeReader() *SizeReader {
	return &SizeReader{}
}

// ReadSize returns the width and height of the image at path
func (p *SizeReader) ReadSize(path string) (int, int, error) {
	w, h, err := decodeConfigSize(path)
	if err == nil {
		return w, h, nil
	}

	ew, eh, exifErr := p.exifSize(path)
	if exifErr == nil {
		return ew, eh, nil
	}
	return 0, 0, fmt.Errorf("failed to read size of %s: %w", path, errors.Join(err, exifErr))
}

// Close stops the exiftool process, if one was started
func (p *SizeReader) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.et == nil {
		return nil
	}
	err := p.et.Close()
	p.et = nil
	return err
}

func decodeConfigSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func (p *SizeReader) exifSize(path string) (int, int, error) {
	p.once.Do(func() {
		p.et, p.initErr = exiftool.NewExiftool()
	})
	if p.initErr != nil {
		return 0, 0, fmt.Errorf("failed to initialize exiftool: %w", p.initErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.et == nil {
		return 0, 0, errors.New("exiftool closed")
	}

	fileInfos := p.et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return 0, 0, errors.New("no metadata extracted")
	}
	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		return 0, 0, fileInfo.Err
	}

	w, err := fileInfo.GetInt("ImageWidth")
	if err != nil {
		return 0, 0, err
	}
	h, err := fileInfo.GetInt("ImageHeight")
	if err != nil {
		return 0, 0, err
	}
	return int(w), int(h), nil
}
