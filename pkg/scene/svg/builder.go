package svg

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
)

// LayerClass marks the canvas element of a text layer.
const LayerClass = "textSelectionSVG"

// Builder implements scene.Builder with SVG elements: an svg canvas, text
// runs and tspan spans.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) CreateCanvas(vp scene.Viewport) scene.Node {
	el := newElement("svg", scene.KindCanvas)
	el.SetAttr("xmlns", Namespace)
	el.SetAttr("class", LayerClass)
	el.SetAttr("viewBox", strings.Join([]string{
		formatFloat(vp.MinX), formatFloat(vp.MinY),
		formatFloat(vp.Width), formatFloat(vp.Height),
	}, " "))
	el.SetAttr("preserveAspectRatio", "none")
	el.SetAttr("style", "width: 100%; height: 100%; position: absolute; top: 0; left: 0;")
	return el
}

func (b *Builder) CreateTextRun(pos scene.Point, fontSize, forcedLength float64, style scene.RunStyle) scene.Node {
	el := newElement("text", scene.KindTextRun)
	el.setFloat("x", pos.X)
	el.setFloat("y", pos.Y)
	el.setFloat("font-size", fontSize)
	el.setFloat("textLength", forcedLength)
	el.SetAttr("lengthAdjust", "spacingAndGlyphs")
	el.SetAttr("style", runCSS(style))
	return el
}

// CreateSpan only uses pos.X; spans share the baseline of their run.
func (b *Builder) CreateSpan(text string, pos scene.Point, forcedLength float64) scene.Node {
	el := newElement("tspan", scene.KindSpan)
	el.setFloat("x", pos.X)
	el.setFloat("textLength", forcedLength)
	el.SetAttr("lengthAdjust", "spacingAndGlyphs")
	el.Text = text
	return el
}

// AppendChild ignores nodes that were not created by an svg Builder.
func (b *Builder) AppendChild(parent, child scene.Node) {
	p, ok := parent.(*Element)
	if !ok {
		return
	}
	c, ok := child.(*Element)
	if !ok {
		return
	}
	p.Append(c)
}

func runCSS(style scene.RunStyle) string {
	fill := style.Fill
	if fill == "" {
		fill = "black"
	}
	return fmt.Sprintf("fill: %s; fill-opacity: %s; cursor: text; white-space: pre; dominant-baseline: text-after-edge;",
		fill, formatFloat(style.FillOpacity))
}
