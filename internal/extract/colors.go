package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ColorCounts summarizes styling that evokes an environmental image
type ColorCounts struct {
	GreenElements int `json:"green_elements"`
	BlueElements  int `json:"blue_elements"`
	EcoClasses    int `json:"eco_classes"`
}

var (
	greenStyleMarkers = []string{"green", "#0f0", "rgb(0,"}
	blueStyleMarkers  = []string{"blue", "#00f", "rgb(0,0,"}
	ecoClassMarkers   = []string{"green", "eco", "sustainable", "climate"}
)

// CountColors counts inline styles and class names that suggest an eco theme
func CountColors(htmlContent string) (ColorCounts, error) {
	doc, err := parseDocument(htmlContent)
	if err != nil {
		return ColorCounts{}, err
	}
	return countColors(doc), nil
}

func countColors(doc *goquery.Document) ColorCounts {
	var counts ColorCounts

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style := strings.ToLower(s.AttrOr("style", ""))
		if containsAny(style, greenStyleMarkers) {
			counts.GreenElements++
		}
		if containsAny(style, blueStyleMarkers) {
			counts.BlueElements++
		}
	})

	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		classes := strings.ToLower(strings.Join(strings.Fields(s.AttrOr("class", "")), " "))
		if containsAny(classes, ecoClassMarkers) {
			counts.EcoClasses++
		}
	})

	return counts
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
