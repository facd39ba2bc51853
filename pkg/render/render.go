// Package render turns an estimate.Result into display text and a PNG image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/obsidianstack/samplerate/pkg/estimate"
)

const (
	padding    = 20
	lineHeight = 18
	minWidth   = 480
)

var (
	textColor    = color.Black
	warningColor = color.RGBA{R: 0xc0, A: 0xff}
)

// Title is the heading used for both text and image output.
const Title = "Transaction Calculator"

// Lines returns the calculated values as display lines, in the order the
// calculator shows them.
func Lines(r estimate.Result) []string {
	lines := []string{
		fmt.Sprintf("Transactions per day: %s transactions/day", estimate.FormatCount(r.EstimatedPerDay)),
		fmt.Sprintf("Max number of transactions per day: %s transactions/day (%s)",
			estimate.FormatCount(r.EffectiveCeiling), ceilingSource(r)),
	}
	if r.SamplingRequired {
		lines = append(lines, "You will need to sample the transactions.")
	}
	lines = append(lines, fmt.Sprintf("Sample rate: %s", estimate.FormatPercent(r.SamplePercent())))
	if r.SamplingRequired {
		lines = append(lines, "Calculation breakdown:")
		lines = append(lines, strings.Split(estimate.Breakdown(r), "\n")...)
	}
	return lines
}

// ceilingSource explains where the effective ceiling came from, e.g.
// "17,280,000 transactions/day * 80%".
func ceilingSource(r estimate.Result) string {
	src := fmt.Sprintf("%s transactions/day", estimate.FormatCount(r.RawCeiling))
	if r.EventsPerSecond > 0 {
		src = fmt.Sprintf("%d events/s * 86,400 s = %s", r.EventsPerSecond, src)
	}
	if r.SafetyMargin != 1 {
		pct := math.Round(r.SafetyMargin*1e4) / 1e2
		src += " * " + strconv.FormatFloat(pct, 'f', -1, 64) + "%"
	}
	return src
}

// PNG writes r as a plain white raster with one text line per Lines entry.
func PNG(w io.Writer, r estimate.Result) error {
	lines := append([]string{Title, ""}, Lines(r)...)

	face := basicfont.Face7x13
	width := minWidth
	for _, l := range lines {
		if adv := font.MeasureString(face, l).Ceil() + 2*padding; adv > width {
			width = adv
		}
	}
	height := 2*padding + len(lines)*lineHeight

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Face: face}
	for i, l := range lines {
		d.Src = image.NewUniform(textColor)
		if r.SamplingRequired && strings.HasPrefix(l, "You will need") {
			d.Src = image.NewUniform(warningColor)
		}
		d.Dot = fixed.P(padding, padding+(i+1)*lineHeight-5)
		d.DrawString(l)
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}
