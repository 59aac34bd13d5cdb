package reader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/lehigh-university-libraries/textlayer/pkg/djvu"
	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
	"github.com/lehigh-university-libraries/textlayer/pkg/scene/svg"
	"github.com/lehigh-university-libraries/textlayer/pkg/source"
	"github.com/lehigh-university-libraries/textlayer/pkg/textlayer"
	"github.com/lehigh-university-libraries/textlayer/pkg/textselection"
)

const book = `<DjVuXML><BODY>
<OBJECT width="2000" height="3000"><LINE>
<WORD coords="100,200,180,150">Hi</WORD><WORD coords="200,200,360,150">there</WORD>
</LINE></OBJECT>
<OBJECT width="2000" height="3000"><LINE><WORD coords="10,60,90,20">two</WORD></LINE></OBJECT>
<OBJECT width="2000" height="3000"></OBJECT>
</BODY></DjVuXML>`

type memFetcher struct {
	calls atomic.Int32
	docs  map[string]string
}

func (f *memFetcher) Fetch(ctx context.Context, bookID string) ([]byte, error) {
	f.calls.Add(1)
	doc, ok := f.docs[bookID]
	if !ok {
		return nil, errors.New("404")
	}
	return []byte(doc), nil
}

func setup(t *testing.T, pageCount int) (*Reader, *textselection.Plugin, *memFetcher) {
	t.Helper()
	f := &memFetcher{docs: map[string]string{"book": book}}
	prov := source.New(f, djvu.Decode)
	synth := textlayer.New(prov, svg.NewBuilder())
	plugin := textselection.New(prov, synth)

	r := New(pageCount)
	plugin.Register(r)
	return r, plugin, f
}

func open(t *testing.T, r *Reader, p *textselection.Plugin, s textselection.Session, page int) *svg.Container {
	t.Helper()
	ctx := context.Background()
	r.Open(ctx, s)
	c, err := r.Container(ctx, page)
	if err != nil {
		t.Fatalf("Container(%d) error = %v", page, err)
	}
	if err := p.Wait(ctx, c); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return c.(*svg.Container)
}

func TestReader_TextLayerPerPage(t *testing.T) {
	r, p, f := setup(t, 3)
	c := open(t, r, p, textselection.Session{BookID: "book", TextSelection: true}, 0)

	if !c.HasTextLayer() {
		t.Fatal("expected text layer on page 0")
	}
	if n := len(c.TextLayer().FindAll(scene.KindTextRun)); n != 1 {
		t.Errorf("expected 1 run, got %d", n)
	}

	ctx := context.Background()
	again, _ := r.Container(ctx, 0)
	if again != scene.Container(c) {
		t.Error("container should be reused for the same page")
	}

	for _, idx := range []int{1, 2} {
		pc, err := r.Container(ctx, idx)
		if err != nil {
			t.Fatal(err)
		}
		p.Wait(ctx, pc)
	}
	if f.calls.Load() != 1 {
		t.Errorf("expected one OCR fetch per book, got %d", f.calls.Load())
	}

	if _, err := r.Container(ctx, 3); err == nil {
		t.Error("expected out of range error")
	}
}

func TestReader_FetchFailure(t *testing.T) {
	r, p, _ := setup(t, 0)
	c := open(t, r, p, textselection.Session{BookID: "missing", TextSelection: true}, 0)
	if c.HasTextLayer() {
		t.Error("no text layer expected when OCR is unavailable")
	}
	for i := 1; i < 4; i++ {
		pc, err := r.Container(context.Background(), i)
		if err != nil {
			t.Fatalf("container %d: %v", i, err)
		}
		p.Wait(context.Background(), pc)
		if pc.HasTextLayer() {
			t.Errorf("page %d has a layer for a failed book", i)
		}
	}
}

func TestReader_PageBeyondDocument(t *testing.T) {
	r, p, _ := setup(t, 0)
	c := open(t, r, p, textselection.Session{BookID: "book", TextSelection: true}, 10)
	if c.HasTextLayer() || c.TextLayer() != nil {
		t.Error("page beyond OCR document should have no canvas")
	}
}

func TestReader_ToggleOff(t *testing.T) {
	r, p, f := setup(t, 0)
	c := open(t, r, p, textselection.Session{BookID: "book", TextSelection: false}, 0)
	if c.HasTextLayer() {
		t.Error("text selection disabled, no layer expected")
	}
	if f.calls.Load() != 0 {
		t.Errorf("no OCR fetch expected, got %d", f.calls.Load())
	}
}

func TestReader_GestureFixup(t *testing.T) {
	r, p, _ := setup(t, 3)
	open(t, r, p, textselection.Session{BookID: "book", TextSelection: true}, 0)

	// Dragging across words selects text and keeps the page.
	r.Press(scene.Point{X: 120, Y: 180})
	r.Release(scene.Point{X: 300, Y: 180})
	if r.CurrentPage() != 0 {
		t.Fatalf("text drag flipped the page to %d", r.CurrentPage())
	}

	// A gesture over the image flips forward.
	r.Press(scene.Point{X: 1500, Y: 2500})
	r.Release(scene.Point{X: 1000, Y: 2500})
	if r.CurrentPage() != 1 {
		t.Fatalf("background swipe should flip to page 1, got %d", r.CurrentPage())
	}

	c, _ := r.Container(context.Background(), 1)
	p.Wait(context.Background(), c)

	// Swiping right goes back.
	r.Press(scene.Point{X: 1000, Y: 2500})
	r.Release(scene.Point{X: 1500, Y: 2500})
	if r.CurrentPage() != 0 {
		t.Fatalf("expected back on page 0, got %d", r.CurrentPage())
	}
}

func TestReader_FlipWithoutTextLayer(t *testing.T) {
	r, p, _ := setup(t, 2)
	open(t, r, p, textselection.Session{BookID: "book", TextSelection: false}, 0)

	r.Press(scene.Point{X: 120, Y: 180})
	r.Release(scene.Point{X: 120, Y: 180})
	if r.CurrentPage() != 1 {
		t.Errorf("without text layer presses flip pages, got %d", r.CurrentPage())
	}

	// Last page stays put.
	if _, err := r.Container(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	r.Press(scene.Point{})
	r.Release(scene.Point{})
	if r.CurrentPage() != 1 {
		t.Errorf("should stay on last page, got %d", r.CurrentPage())
	}
}

func TestReader_OpenNewBookResets(t *testing.T) {
	r, p, _ := setup(t, 0)
	first := open(t, r, p, textselection.Session{BookID: "book", TextSelection: true}, 0)

	second := open(t, r, p, textselection.Session{BookID: "book", TextSelection: true}, 0)
	if first == second {
		t.Error("new session should create fresh containers")
	}
	if !second.HasTextLayer() {
		t.Error("fresh container should get its own layer")
	}

	r.Discard(0)
	c, _ := r.Container(context.Background(), 0)
	if c == scene.Container(second) {
		t.Error("discarded container should be recreated")
	}
	if r.Session().BookID != "book" {
		t.Errorf("Session() = %+v", r.Session())
	}
}

func TestReader_OpenRunsEveryHook(t *testing.T) {
	r := New(0)
	var got []string
	for _, name := range []string{"first", "second"} {
		r.OnSessionStart(func(ctx context.Context, s textselection.Session) {
			got = append(got, name+":"+s.BookID)
		})
	}
	r.Open(context.Background(), textselection.Session{BookID: "b1"})
	if len(got) != 2 || got[0] != "first:b1" || got[1] != "second:b1" {
		t.Errorf("hooks ran as %v", got)
	}
}

func TestReader_SetPageCount(t *testing.T) {
	r, _, _ := setup(t, 0)
	r.Open(context.Background(), textselection.Session{BookID: "book"})
	for _, idx := range []int{0, 1, 5, 1000000} {
		if _, err := r.Container(context.Background(), idx); err != nil {
			t.Fatalf("Container(%d) error = %v", idx, err)
		}
	}

	r.SetPageCount(2)
	if n := r.ContainerCount(); n != 2 {
		t.Errorf("ContainerCount() = %d, want 2", n)
	}
	if _, err := r.Container(context.Background(), 2); err == nil {
		t.Error("page past the end should be rejected")
	}

	r.SetPageCount(0)
	if _, err := r.Container(context.Background(), 5); err == nil {
		t.Error("SetPageCount(0) must not reopen the range")
	}
}
