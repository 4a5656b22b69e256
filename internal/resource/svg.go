package resource

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// isSVGData performs a lightweight detection of SVG content from raw bytes by
// inspecting the first few kilobytes for an <svg> tag or namespace.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// rasterizeSVG renders SVG bytes to PNG. The render size comes from the SVG's
// explicit width/height attributes when present, otherwise from the manager's
// configured fallback size.
func (m *Manager) rasterizeSVG(data []byte) ([]byte, error) {
	w, h, ok := svgExplicitSize(data)
	if !ok {
		w, h = m.svgFallbackWidth, m.svgFallbackHeight
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("SVG has no explicit size and no fallback size is configured")
		}
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	// White canvas; SVGs with transparency render against it.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	var buf bytes.Buffer
	buf.Grow(w * h)
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode rendered SVG as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// svgExplicitSize extracts pixel width/height attributes from the <svg> start
// tag. A viewBox alone is not treated as a pixel size.
func svgExplicitSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))

	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := s[i:j]

	w, wOK := numericAttr(tag, "width")
	h, hOK := numericAttr(tag, "height")
	if wOK && hOK && w > 0 && h > 0 {
		return w, h, true
	}
	return 0, 0, false
}

// numericAttr extracts the leading integer of a quoted attribute value, e.g.
// width="123px" yields 123.
func numericAttr(tag, attr string) (int, bool) {
	pos := strings.Index(tag, attr+"=")
	if pos < 0 {
		return 0, false
	}
	rest := tag[pos+len(attr)+1:]
	if len(rest) == 0 {
		return 0, false
	}
	if rest[0] == '"' || rest[0] == '\'' {
		rest = rest[1:]
	}
	num := 0
	found := false
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if ch >= '0' && ch <= '9' {
			found = true
			num = num*10 + int(ch-'0')
		} else {
			break
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}
