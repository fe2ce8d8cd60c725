// Package media inspects uploaded images and documents.
// The metadata it reports is informational and never part of an analysis request.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"regexp"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
	MIMEPDF  = "application/pdf"
)

// SupportedImageTypes are the image formats accepted for diagnosis
var SupportedImageTypes = []string{MIMEPNG, MIMEJPEG, MIMEGIF, MIMEWebP}

// ErrEmpty is returned for zero-length content
var ErrEmpty = errors.New("content is empty")

// UnsupportedTypeError is returned when content is not of an accepted type
type UnsupportedTypeError struct {
	Detected string
	Expected []string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %s (expected one of %s)", e.Detected, strings.Join(e.Expected, ", "))
}

// Info describes an uploaded file
type Info struct {
	MIMEType string  `json:"mime_type"`
	Format   string  `json:"format"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Pages    int     `json:"pages,omitempty"`
	SizeKB   float64 `json:"size_kb"`
}

// Sniff returns the detected MIME type of data without parameters
func Sniff(data []byte) string {
	mime := mimetype.Detect(data).String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// IsImage reports whether mime is an accepted image type
func IsImage(mime string) bool {
	return mimetype.EqualsAny(mime, SupportedImageTypes...)
}

// ImageInfo validates data as a supported image and reports its dimensions.
// WebP dimensions are not decoded and stay zero.
func ImageInfo(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mime := Sniff(data)
	if !IsImage(mime) {
		return nil, &UnsupportedTypeError{Detected: mime, Expected: SupportedImageTypes}
	}

	info := &Info{MIMEType: mime, Format: strings.TrimPrefix(mime, "image/"), SizeKB: sizeKB(data)}
	if mime == MIMEWebP {
		return info, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	info.Format = format
	info.Width = cfg.Width
	info.Height = cfg.Height
	return info, nil
}

var (
	pageObject = regexp.MustCompile(`/Type\s*/Page[^s]`)
	pageCount  = regexp.MustCompile(`/Type\s*/Pages\b[^>]*?/Count\s+(\d+)`)
)

// PDFInfo validates data as a PDF and estimates its page count
func PDFInfo(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mime := Sniff(data)
	if mime != MIMEPDF {
		return nil, &UnsupportedTypeError{Detected: mime, Expected: []string{MIMEPDF}}
	}

	pages := len(pageObject.FindAllIndex(data, -1))
	if pages == 0 {
		if m := pageCount.FindSubmatch(data); m != nil {
			pages, _ = strconv.Atoi(string(m[1]))
		}
	}

	return &Info{MIMEType: MIMEPDF, Format: "pdf", Pages: pages, SizeKB: sizeKB(data)}, nil
}

func sizeKB(data []byte) float64 {
	return float64(int(float64(len(data))/1024*100)) / 100
}
