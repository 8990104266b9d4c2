package model

import (
	"fmt"
	"strings"
)

// Dimensions is a pixel size sent to image backends
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

var DefaultDimensions = Dimensions{Width: 768, Height: 768}

var resolutionMap = map[string]map[Quality]Dimensions{
	"1:1": {
		QualitySD:     {512, 512},
		QualityHD:     {768, 768},
		QualityFullHD: {1024, 1024},
		Quality2K:     {2048, 2048},
		Quality4K:     {4096, 4096},
	},
	"16:9": {
		QualitySD:     {640, 360},
		QualityHD:     {1280, 720},
		QualityFullHD: {1920, 1080},
		Quality2K:     {2560, 1440},
		Quality4K:     {3840, 2160},
	},
	"3:4": {
		QualitySD:     {384, 512},
		QualityHD:     {576, 768},
		QualityFullHD: {768, 1024},
		Quality2K:     {1536, 2048},
		Quality4K:     {3072, 4096},
	},
}

// transposed ratios reuse the landscape/portrait table with sides swapped
var transposed = map[string]string{
	"9:16": "16:9",
	"4:3":  "3:4",
}

// ResolveDimensions maps an aspect ratio and quality pair to a pixel size.
// The same pair always yields the same size; both sides are multiples of 16.
func ResolveDimensions(aspectRatio, quality string) Dimensions {
	ratio := strings.TrimSpace(aspectRatio)
	q := normalizeQuality(quality)

	var (
		d  Dimensions
		ok bool
	)
	if base, swap := transposed[ratio]; swap {
		d, ok = resolutionMap[base][q]
		d = Dimensions{Width: d.Height, Height: d.Width}
	} else {
		d, ok = resolutionMap[ratio][q]
	}
	if !ok {
		d = DefaultDimensions
	}

	return Dimensions{Width: d.Width / 16 * 16, Height: d.Height / 16 * 16}
}

func normalizeQuality(q string) Quality {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(q), " ", "")) {
	case "SD":
		return QualitySD
	case "HD":
		return QualityHD
	case "FULLHD":
		return QualityFullHD
	case "2K":
		return Quality2K
	case "4K":
		return Quality4K
	}
	return Quality(q)
}
