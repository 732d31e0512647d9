package objectload

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agentic-research/mache/internal/cmserr"
)

// ImageKind distinguishes the two payload shapes Image fields accept
//: a decoded raster bitmap, or an svg document's declared
// dimensions.
type ImageKind int

const (
	ImageRaster ImageKind = iota
	ImageVector
)

// Image is a loaded, dimensioned image ready for meta construction and
// upload (or, for vectors under the embed threshold, inline embedding).
type Image struct {
	Object
	Kind          ImageKind
	Width, Height int
}

// LoadImage loads src then decodes it as either an SVG document (if the
// bytes are valid UTF-8 XML with an <svg> root) or a raster image,
// mirroring the source format's utf8-sniff-then-decode dispatch.
func LoadImage(ctx cmserr.Context, src string, documentPath string) (*Image, error) {
	obj, err := Load(ctx, src, documentPath)
	if err != nil {
		return nil, err
	}

	if utf8.Valid(obj.Body) {
		w, h, svgErr := svgDimensions(obj.Body)
		if svgErr == nil {
			return &Image{Object: *obj, Kind: ImageVector, Width: w, Height: h}, nil
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(obj.Body))
	if err != nil {
		return nil, &cmserr.LoadImage{Ctx: ctx, Origin: src, Err: fmt.Errorf("decode raster: %w", err)}
	}
	return &Image{Object: *obj, Kind: ImageRaster, Width: cfg.Width, Height: cfg.Height}, nil
}

type svgRoot struct {
	XMLName xml.Name `xml:"svg"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	ViewBox string   `xml:"viewBox,attr"`
}

func svgDimensions(body []byte) (int, int, error) {
	var root svgRoot
	if err := xml.Unmarshal(body, &root); err != nil {
		return 0, 0, err
	}
	if w, h, ok := parseDim(root.Width), parseDim(root.Height), true; w > 0 && h > 0 && ok {
		return w, h, nil
	}
	if root.ViewBox != "" {
		parts := strings.Fields(root.ViewBox)
		if len(parts) == 4 {
			w := parseDim(parts[2])
			h := parseDim(parts[3])
			if w > 0 && h > 0 {
				return w, h, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("objectload: svg has no resolvable width/height")
}

func parseDim(s string) int {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
