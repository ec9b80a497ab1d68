package graph

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/gen2brain/webp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"narrativeiq/pkg/schema"
	"narrativeiq/pkg/utils"
)

// ImageResult pairs the rendered mindmap with the credit accounting.
type ImageResult struct {
	WebP             []byte
	Graph            schema.Graph
	CreditsUsed      int
	CreditsRemaining int
}

// MindmapImage builds the graph and renders it to a WebP image as a single
// metered operation.
func (s *Service) MindmapImage(ctx context.Context, userID, text string) (*ImageResult, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}

	res, err := s.ledger.Reserve(ctx, userID, schema.OpMindmapImage)
	if err != nil {
		return nil, err
	}

	graph, err := s.Build(ctx, text)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "mindmap generation failed", Err: err}
	}

	img, err := Render(graph)
	if err != nil {
		res.Refund(ctx)
		return nil, &DownstreamError{Reason: "mindmap render failed", Err: err}
	}

	balance, err := res.Complete(ctx, schema.Record{InputText: text})
	if err != nil {
		return nil, err
	}
	return &ImageResult{
		WebP:             img,
		Graph:            *graph,
		CreditsUsed:      res.Cost(),
		CreditsRemaining: balance,
	}, nil
}

var nodeColors = map[string]color.RGBA{
	"character":    {R: 0x4e, G: 0x79, B: 0xa7, A: 0xff},
	"location":     {R: 0x59, G: 0xa1, B: 0x4f, A: 0xff},
	"organization": {R: 0xaf, G: 0x7a, B: 0xa1, A: 0xff},
	"theme":        {R: 0xed, G: 0xc9, B: 0x48, A: 0xff},
	"event":        {R: 0xe1, G: 0x57, B: 0x59, A: 0xff},
	"object":       {R: 0x76, G: 0xb7, B: 0xb2, A: 0xff},
}

const (
	canvasSize = 1024
	nodeRadius = 26
)

// Render lays the graph out on a circle and draws it to a WebP image.
// Layout is deterministic: node order fixes angular position.
func Render(g *schema.Graph) ([]byte, error) {
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("nothing to render: graph has no nodes")
	}

	img := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff}), image.Point{}, draw.Src)

	center := canvasSize / 2
	layoutRadius := float64(canvasSize)/2 - 110

	pos := make(map[string]image.Point, len(g.Nodes))
	for i, n := range g.Nodes {
		angle := 2 * math.Pi * float64(i) / float64(len(g.Nodes))
		pos[n.ID] = image.Point{
			X: center + int(layoutRadius*math.Cos(angle)),
			Y: center + int(layoutRadius*math.Sin(angle)),
		}
	}

	edgeColor := color.RGBA{R: 0x6c, G: 0x70, B: 0x86, A: 0xff}
	for _, e := range g.Edges {
		drawLine(img, pos[e.Source], pos[e.Target], edgeColor)
	}

	for _, n := range g.Nodes {
		fill, ok := nodeColors[n.Type]
		if !ok {
			fill = color.RGBA{R: 0x9a, G: 0x9a, B: 0x9a, A: 0xff}
		}
		drawCircle(img, pos[n.ID], nodeRadius, fill)
		drawLabel(img, pos[n.ID], utils.LimitStr(n.Label, 18))
	}
	if g.Summary != "" {
		drawText(img, image.Point{X: 20, Y: canvasSize - 24}, utils.LimitStr(g.Summary, 130))
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, webp.Options{Lossless: false, Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

func drawLine(img *image.RGBA, a, b image.Point, c color.RGBA) {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		img.SetRGBA(a.X, a.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		img.SetRGBA(a.X+int(dx*t), a.Y+int(dy*t), c)
	}
}

func drawCircle(img *image.RGBA, at image.Point, r int, c color.RGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				img.SetRGBA(at.X+x, at.Y+y, c)
			}
		}
	}
}

func drawLabel(img *image.RGBA, at image.Point, label string) {
	width := len(label) * basicfont.Face7x13.Advance
	drawText(img, image.Point{X: at.X - width/2, Y: at.Y + nodeRadius + 16}, label)
}

func drawText(img *image.RGBA, at image.Point, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0xcd, G: 0xd6, B: 0xf4, A: 0xff}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(text)
}
