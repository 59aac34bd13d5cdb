package textlayer

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lehigh-university-libraries/textlayer/pkg/ocr"
	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
	"github.com/lehigh-university-libraries/textlayer/pkg/scene/svg"
)

type stubPages struct {
	pages []ocr.Page
	calls atomic.Int32
}

func (s *stubPages) PageAt(ctx context.Context, index int) (*ocr.Page, bool) {
	s.calls.Add(1)
	if index < 0 || index >= len(s.pages) {
		return nil, false
	}
	return &s.pages[index], true
}

func word(text string, l, b, r, t float64) ocr.Word {
	return ocr.Word{Text: text, Box: ocr.Box{Left: l, Bottom: b, Right: r, Top: t}, HasBox: true}
}

func scenarioPage() ocr.Page {
	return ocr.Page{
		Width:  2000,
		Height: 3000,
		Lines: []ocr.Line{{Words: []ocr.Word{
			word("Hi", 100, 200, 180, 150),
			word("there", 200, 200, 360, 150),
		}}},
	}
}

type spanWant struct {
	text   string
	x      float64
	length float64
}

func checkSpans(t *testing.T, run *svg.Element, want []spanWant) {
	t.Helper()
	if len(run.Children) != len(want) {
		t.Fatalf("expected %d spans, got %d", len(want), len(run.Children))
	}
	for i, w := range want {
		span := run.Children[i]
		if span.Kind() != scene.KindSpan {
			t.Errorf("child %d is %v, want span", i, span.Kind())
		}
		if span.Text != w.text || span.FloatAttr("x") != w.x || span.FloatAttr("textLength") != w.length {
			t.Errorf("span %d = %q x=%s len=%s, want %q x=%v len=%v",
				i, span.Text, span.Attr("x"), span.Attr("textLength"), w.text, w.x, w.length)
		}
	}
}

func TestBuild_Scenario(t *testing.T) {
	s := New(&stubPages{}, svg.NewBuilder())
	page := scenarioPage()
	canvas := s.Build(&page).(*svg.Element)

	if got := canvas.Attr("viewBox"); got != "0 0 2000 3000" {
		t.Errorf("viewBox = %q", got)
	}
	if got := canvas.Attr("preserveAspectRatio"); got != "none" {
		t.Errorf("preserveAspectRatio = %q", got)
	}

	runs := canvas.FindAll(scene.KindTextRun)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	for attr, want := range map[string]float64{"x": 100, "y": 200, "font-size": 50, "textLength": 260} {
		if got := run.FloatAttr(attr); got != want {
			t.Errorf("run %s = %v, want %v", attr, got, want)
		}
	}
	if !strings.Contains(run.Attr("style"), "fill-opacity: 0;") {
		t.Errorf("run should be invisible, style %q", run.Attr("style"))
	}

	checkSpans(t, run, []spanWant{
		{"Hi", 100, 80},
		{" ", 180, 20},
		{"there", 200, 160},
	})
}

func TestBuild_EdgeCases(t *testing.T) {
	s := New(&stubPages{}, svg.NewBuilder())

	t.Run("no lines", func(t *testing.T) {
		canvas := s.Build(&ocr.Page{Width: 10, Height: 10}).(*svg.Element)
		if n := len(canvas.FindAll(scene.KindTextRun)); n != 0 {
			t.Errorf("expected no runs, got %d", n)
		}
	})

	t.Run("line without boxed words is skipped", func(t *testing.T) {
		page := &ocr.Page{Width: 10, Height: 10, Lines: []ocr.Line{
			{},
			{Words: []ocr.Word{{Text: "ghost"}}},
		}}
		canvas := s.Build(page).(*svg.Element)
		if n := len(canvas.FindAll(scene.KindTextRun)); n != 0 {
			t.Errorf("expected no runs, got %d", n)
		}
	})

	t.Run("unparsable word excluded from text and extent", func(t *testing.T) {
		page := &ocr.Page{Width: 1000, Height: 1000, Lines: []ocr.Line{{Words: []ocr.Word{
			word("a", 10, 50, 30, 20),
			{Text: "bad", Box: ocr.Box{Left: 0, Bottom: 900, Right: 900, Top: 0}},
			word("b", 40, 55, 70, 25),
		}}}}
		canvas := s.Build(page).(*svg.Element)
		run := canvas.FindAll(scene.KindTextRun)[0]
		if run.FloatAttr("x") != 10 || run.FloatAttr("y") != 55 || run.FloatAttr("textLength") != 60 || run.FloatAttr("font-size") != 35 {
			t.Errorf("run attrs = %+v", run.Attrs)
		}
		checkSpans(t, run, []spanWant{
			{"a", 10, 20},
			{" ", 30, 10},
			{"b", 40, 30},
		})
	})

	t.Run("inverted and overlapping boxes are clamped", func(t *testing.T) {
		page := &ocr.Page{Width: 1000, Height: 1000, Lines: []ocr.Line{{Words: []ocr.Word{
			word("inv", 50, 40, 30, 60),
			word("lap", 20, 60, 80, 40),
		}}}}
		canvas := s.Build(page).(*svg.Element)
		run := canvas.FindAll(scene.KindTextRun)[0]
		checkSpans(t, run, []spanWant{
			{"inv", 50, 0},
			{" ", 30, 0},
			{"lap", 20, 60},
		})
		canvas.Walk(func(el *svg.Element) bool {
			for _, a := range []string{"textLength", "font-size"} {
				if el.FloatAttr(a) < 0 {
					t.Errorf("negative %s on %s", a, el.Name)
				}
			}
			return true
		})
	})

	t.Run("single word has no space span", func(t *testing.T) {
		page := &ocr.Page{Width: 100, Height: 100, Lines: []ocr.Line{{Words: []ocr.Word{word("solo", 1, 9, 5, 2)}}}}
		run := s.Build(page).(*svg.Element).FindAll(scene.KindTextRun)[0]
		checkSpans(t, run, []spanWant{{"solo", 1, 4}})
	})
}

func TestBuild_LineProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := New(&stubPages{}, svg.NewBuilder())

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.IntN(8)
		words := make([]ocr.Word, n)
		x := float64(rng.IntN(100))
		minL, maxR, minT, maxB := x, 0.0, 1e9, 0.0
		for i := range words {
			w := float64(1 + rng.IntN(200))
			top := float64(100 + rng.IntN(20))
			bottom := top + float64(10+rng.IntN(30))
			words[i] = word("w", x, bottom, x+w, top)
			maxR = x + w
			minT = min(minT, top)
			maxB = max(maxB, bottom)
			x += w + float64(rng.IntN(40))
		}

		page := &ocr.Page{Width: 5000, Height: 5000, Lines: []ocr.Line{{Words: words}}}
		run := s.Build(page).(*svg.Element).FindAll(scene.KindTextRun)[0]

		if run.FloatAttr("x") != minL || run.FloatAttr("y") != maxB {
			t.Fatalf("iter %d: run at (%v,%v), want (%v,%v)", iter, run.FloatAttr("x"), run.FloatAttr("y"), minL, maxB)
		}
		if run.FloatAttr("textLength") != maxR-minL {
			t.Fatalf("iter %d: run length %v, want %v", iter, run.FloatAttr("textLength"), maxR-minL)
		}
		if run.FloatAttr("font-size") != maxB-minT {
			t.Fatalf("iter %d: font size %v, want %v", iter, run.FloatAttr("font-size"), maxB-minT)
		}
		if len(run.Children) != 2*n-1 {
			t.Fatalf("iter %d: %d spans for %d words", iter, len(run.Children), n)
		}
		for i := 0; i < n-1; i++ {
			space := run.Children[2*i+1]
			if space.Text != " " {
				t.Fatalf("iter %d: expected space span at %d", iter, 2*i+1)
			}
			if space.FloatAttr("x") != words[i].Box.Right || space.FloatAttr("textLength") != words[i+1].Box.Left-words[i].Box.Right {
				t.Fatalf("iter %d: bad space span %+v", iter, space.Attrs)
			}
		}
		if run.Children[len(run.Children)-1].Text == " " {
			t.Fatalf("iter %d: trailing space span", iter)
		}
	}
}

func TestBuild_DebugStyle(t *testing.T) {
	s := New(&stubPages{}, svg.NewBuilder(), WithDebug(true))
	page := scenarioPage()
	run := s.Build(&page).(*svg.Element).FindAll(scene.KindTextRun)[0]
	if !strings.Contains(run.Attr("style"), "fill: red; fill-opacity: 1;") {
		t.Errorf("debug style = %q", run.Attr("style"))
	}
}

func TestAttach(t *testing.T) {
	ctx := context.Background()
	pages := &stubPages{pages: []ocr.Page{scenarioPage(), {Width: 10, Height: 10}}}
	s := New(pages, svg.NewBuilder())

	t.Run("attaches once", func(t *testing.T) {
		c := svg.NewContainer(0)
		if !s.Attach(ctx, 0, c) {
			t.Fatal("first attach should succeed")
		}
		layer := c.TextLayer()
		if s.Attach(ctx, 0, c) {
			t.Error("second attach should be a no-op")
		}
		if c.TextLayer() != layer {
			t.Error("layer replaced by second attach")
		}
		if n := len(layer.FindAll(scene.KindCanvas)); n != 1 {
			t.Errorf("expected exactly one canvas, got %d", n)
		}
	})

	t.Run("second attach does not look up the page", func(t *testing.T) {
		c := svg.NewContainer(0)
		s.Attach(ctx, 0, c)
		before := pages.calls.Load()
		s.Attach(ctx, 0, c)
		if pages.calls.Load() != before {
			t.Error("no-op attach should not consult the page source")
		}
	})

	t.Run("page out of range", func(t *testing.T) {
		c := svg.NewContainer(7)
		if s.Attach(ctx, 7, c) {
			t.Error("attach should report false")
		}
		if c.HasTextLayer() || c.TextLayer() != nil {
			t.Error("container should stay without layer")
		}
		if !c.DispatchPress(nil) || !c.DispatchRelease(nil) {
			t.Error("no gesture guard should be installed")
		}
	})

	t.Run("blank page gets an empty layer", func(t *testing.T) {
		c := svg.NewContainer(1)
		if !s.Attach(ctx, 1, c) {
			t.Fatal("blank page should still attach")
		}
		if n := len(c.TextLayer().FindAll(scene.KindTextRun)); n != 0 {
			t.Errorf("expected no runs, got %d", n)
		}
	})

	t.Run("concurrent attaches produce one layer", func(t *testing.T) {
		c := svg.NewContainer(0)
		var wg sync.WaitGroup
		var attached atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.Attach(ctx, 0, c) {
					attached.Add(1)
				}
			}()
		}
		wg.Wait()
		if attached.Load() != 1 {
			t.Errorf("expected exactly one attach, got %d", attached.Load())
		}
	})

	t.Run("gesture guard installed", func(t *testing.T) {
		c := svg.NewContainer(0)
		s.Attach(ctx, 0, c)
		span := c.TextLayer().FindAll(scene.KindSpan)[0]
		if c.DispatchPress(span) {
			t.Error("press on span should be stopped")
		}
		if c.DispatchRelease(nil) {
			t.Error("following release should be stopped")
		}
		if !c.DispatchRelease(nil) {
			t.Error("later release should propagate")
		}
	})
}
