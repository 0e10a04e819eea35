package story

import (
	"fmt"
	"math"
	"testing"

	errs "github.com/matzehuels/novella/pkg/errors"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestStore() *Store {
	return NewStore(nil, WithIDGenerator(seqIDs()))
}

func TestCreateScene(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	b := s.CreateScene()

	if a.ID == b.ID {
		t.Fatalf("CreateScene() returned duplicate id %q", a.ID)
	}
	if a.X != 60 || a.Y != 60 {
		t.Errorf("first scene at (%v,%v), want (60,60)", a.X, a.Y)
	}
	if b.X != 100 || b.Y != 100 {
		t.Errorf("second scene at (%v,%v), want (100,100)", b.X, b.Y)
	}
	if a.Width != DefaultSceneWidth || a.Height != DefaultSceneHeight {
		t.Errorf("scene size = %vx%v, want %vx%v", a.Width, a.Height, DefaultSceneWidth, DefaultSceneHeight)
	}
	if a.Title != DefaultSceneTitle || a.Background != DefaultSceneBackground {
		t.Errorf("scene defaults = %q/%q", a.Title, a.Background)
	}
	if got := len(s.Scenes()); got != 2 {
		t.Errorf("len(Scenes()) = %d, want 2", got)
	}
}

func TestCreateSceneAfterDeleteDoesNotOverlap(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	b := s.CreateScene()
	s.DeleteScene(b.ID)
	c := s.CreateScene()

	if c.X == a.X || c.X == 100 {
		t.Errorf("scene created after delete at x=%v, overlaps an earlier placement", c.X)
	}
}

func TestDeleteScene(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	b := s.CreateScene()
	c := s.CreateScene()

	toB, _ := s.AddChoice(a.ID)
	if err := s.SetChoiceTarget(toB.ID, b.ID); err != nil {
		t.Fatalf("SetChoiceTarget: %v", err)
	}
	toBFromC, _ := s.AddChoice(c.ID)
	_ = s.SetChoiceTarget(toBFromC.ID, b.ID)
	own, _ := s.AddChoice(b.ID)
	layer, _ := s.AddLayer(LayerText, b.ID)

	if !s.DeleteScene(b.ID) {
		t.Fatal("DeleteScene() = false, want true")
	}
	if s.Scene(b.ID) != nil {
		t.Error("deleted scene still resolvable")
	}
	for _, sc := range s.Scenes() {
		if sc.ID == b.ID {
			t.Error("deleted scene still in sequence")
		}
	}
	for _, ch := range []*Choice{toB, toBFromC} {
		got, owner := s.Choice(ch.ID)
		if got == nil || owner == nil {
			t.Fatalf("choice %s was removed, want it kept", ch.ID)
		}
		if got.Target != "" {
			t.Errorf("choice %s target = %q, want empty", ch.ID, got.Target)
		}
	}
	if got, _ := s.Choice(own.ID); got != nil {
		t.Error("choice owned by deleted scene still resolvable")
	}
	if s.Layer(layer.ID) != nil {
		t.Error("layer owned by deleted scene still resolvable")
	}
}

func TestDeleteSceneUnknownIsNoop(t *testing.T) {
	s := newTestStore()
	s.CreateScene()
	if s.DeleteScene("missing") {
		t.Error("DeleteScene(missing) = true, want false")
	}
	if len(s.Scenes()) != 1 {
		t.Errorf("len(Scenes()) = %d, want 1", len(s.Scenes()))
	}
}

// Create A and B, link A to B, delete B: A keeps one choice with no target.
func TestDeleteTargetScenario(t *testing.T) {
	s := NewStore(nil)
	a := s.CreateScene()
	b := s.CreateScene()
	c, err := s.AddChoice(a.ID)
	if err != nil {
		t.Fatalf("AddChoice: %v", err)
	}
	if err := s.SetChoiceTarget(c.ID, b.ID); err != nil {
		t.Fatalf("SetChoiceTarget: %v", err)
	}
	s.DeleteScene(b.ID)

	if len(a.Choices) != 1 {
		t.Fatalf("len(A.Choices) = %d, want 1", len(a.Choices))
	}
	if a.Choices[0].HasTarget() {
		t.Errorf("target = %q, want empty", a.Choices[0].Target)
	}
}

func TestAddChoice(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	s.CreateScene()

	c1, err := s.AddChoice(a.ID)
	if err != nil {
		t.Fatalf("AddChoice: %v", err)
	}
	c2, _ := s.AddChoice(a.ID)

	if c1.Target != a.ID {
		t.Errorf("default target = %q, want first scene %q", c1.Target, a.ID)
	}
	if c1.Y != 110 || c2.Y != 170 {
		t.Errorf("choice y = %v, %v; want 110, 170", c1.Y, c2.Y)
	}
	if c1.Width != DefaultChoiceWidth || c1.Height != DefaultChoiceHeight {
		t.Errorf("choice size = %vx%v", c1.Width, c1.Height)
	}
	if !c1.Style.Bold || c1.Style.BorderRadius != DefaultChoiceBorderRadius {
		t.Errorf("choice style = %+v", c1.Style)
	}
	if c1.Text != DefaultChoiceText {
		t.Errorf("choice text = %q", c1.Text)
	}
}

func TestAddChoiceStacksBelowLast(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	c1, _ := s.AddChoice(a.ID)
	_ = s.UpdateGeometry(c1.ID, Rect{X: 10, Y: 30, Width: 100, Height: 40})

	c2, _ := s.AddChoice(a.ID)
	if c2.Y != 90 {
		t.Errorf("second choice y = %v, want 90", c2.Y)
	}
}

func TestAddChoiceUnknownScene(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	before := len(a.Choices)
	_, _, choicesBefore := s.Counts()

	c, err := s.AddChoice("missing")
	if c != nil {
		t.Error("AddChoice(missing) returned a choice")
	}
	if !errs.IsNotFound(err) {
		t.Errorf("AddChoice(missing) error = %v, want NotFound", err)
	}
	_, _, choicesAfter := s.Counts()
	if len(a.Choices) != before || choicesAfter != choicesBefore {
		t.Error("project changed after failed AddChoice")
	}
}

func TestDeleteChoice(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	c, _ := s.AddChoice(a.ID)

	if !s.DeleteChoice(c.ID) {
		t.Error("DeleteChoice() = false, want true")
	}
	if len(a.Choices) != 0 {
		t.Errorf("len(Choices) = %d, want 0", len(a.Choices))
	}
	if s.DeleteChoice(c.ID) {
		t.Error("second DeleteChoice() = true, want false")
	}
}

func TestSetChoiceTarget(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	c, _ := s.AddChoice(a.ID)

	tests := []struct {
		name     string
		target   string
		wantErr  bool
		wantTarg string
	}{
		{"clear", "", false, ""},
		{"existing", a.ID, false, a.ID},
		{"unknown", "nope", true, a.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SetChoiceTarget(c.ID, tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetChoiceTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if c.Target != tt.wantTarg {
				t.Errorf("Target = %q, want %q", c.Target, tt.wantTarg)
			}
		})
	}
}

func TestSetChoiceStyleDefaults(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	c, _ := s.AddChoice(a.ID)

	if err := s.SetChoiceStyle(c.ID, ChoiceStyle{FontSize: -3, BorderRadius: math.NaN()}); err != nil {
		t.Fatalf("SetChoiceStyle: %v", err)
	}
	want := ChoiceStyle{Background: DefaultChoiceBackground, Color: DefaultChoiceColor, FontSize: DefaultChoiceFontSize}
	if c.Style != want {
		t.Errorf("Style = %+v, want %+v", c.Style, want)
	}
}

func TestAddLayer(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()

	text, err := s.AddLayer(LayerText, a.ID)
	if err != nil {
		t.Fatalf("AddLayer(text): %v", err)
	}
	img, _ := s.AddLayer(LayerImage, a.ID)

	if text.ZIndex != 1 || img.ZIndex != 2 {
		t.Errorf("zIndex = %d, %d; want 1, 2", text.ZIndex, img.ZIndex)
	}
	if text.Style != DefaultTextStyle() || text.Content != DefaultTextContent {
		t.Errorf("text defaults = %+v %q", text.Style, text.Content)
	}
	if img.Width != DefaultImageWidth || img.Height != DefaultImageHeight || img.Src != "" {
		t.Errorf("image placeholder = %+v", img)
	}

	loose, _ := s.AddLayer(LayerText, "")
	if got := len(s.LooseLayers()); got != 1 {
		t.Errorf("len(LooseLayers()) = %d, want 1", got)
	}
	if loose.X != DefaultCanvasWidth/2-80 || loose.Y != DefaultCanvasHeight/2-25 {
		t.Errorf("loose text at (%v,%v)", loose.X, loose.Y)
	}
}

func TestAddLayerErrors(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()

	tests := []struct {
		name  string
		kind  LayerKind
		owner string
		code  errs.Code
	}{
		{"unknown owner", LayerText, "missing", errs.ErrCodeNotFound},
		{"unknown kind", LayerKind("video"), a.ID, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddLayer(tt.kind, tt.owner)
			if got := errs.GetCode(err); got != tt.code {
				t.Errorf("AddLayer() code = %q, want %q", got, tt.code)
			}
		})
	}
	if len(a.Layers) != 0 {
		t.Errorf("len(Layers) = %d after failed adds", len(a.Layers))
	}
}

func TestFindSceneOf(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	b := s.CreateScene()
	la, _ := s.AddLayer(LayerText, a.ID)
	lb, _ := s.AddLayer(LayerImage, b.ID)
	loose, _ := s.AddLayer(LayerImage, "")

	tests := []struct {
		layer string
		want  *Scene
	}{
		{la.ID, a},
		{lb.ID, b},
		{loose.ID, nil},
		{"missing", nil},
	}
	for _, tt := range tests {
		if got := s.FindSceneOf(tt.layer); got != tt.want {
			t.Errorf("FindSceneOf(%q) = %v, want %v", tt.layer, got, tt.want)
		}
	}
}

func TestDeleteLayer(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	l, _ := s.AddLayer(LayerText, a.ID)
	loose, _ := s.AddLayer(LayerText, "")

	if !s.DeleteLayer(l.ID) || !s.DeleteLayer(loose.ID) {
		t.Fatal("DeleteLayer() = false, want true")
	}
	if len(a.Layers) != 0 || len(s.LooseLayers()) != 0 {
		t.Error("layers still attached after delete")
	}
	if s.DeleteLayer(l.ID) {
		t.Error("DeleteLayer(deleted) = true, want false")
	}
}

func TestReorderLayer(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	l1, _ := s.AddLayer(LayerText, a.ID)
	l2, _ := s.AddLayer(LayerText, a.ID)
	l3, _ := s.AddLayer(LayerText, a.ID)

	if err := s.ReorderLayer(l1.ID, -10); err != nil {
		t.Fatalf("ReorderLayer: %v", err)
	}
	if l1.ZIndex != 1 {
		t.Errorf("zIndex = %d, want floor 1", l1.ZIndex)
	}

	// l3 drops to 2, tying with l2 which was created first.
	_ = s.ReorderLayer(l3.ID, -1)
	want := []*Layer{l1, l2, l3}
	for i, l := range a.Layers {
		if l != want[i] {
			t.Errorf("Layers[%d] = %s, want %s", i, l.ID, want[i].ID)
		}
	}

	_ = s.ReorderLayer(l1.ID, 5)
	if a.Layers[len(a.Layers)-1] != l1 {
		t.Errorf("layer moved forward is not last")
	}

	if err := s.ReorderLayer("missing", 1); !errs.IsNotFound(err) {
		t.Errorf("ReorderLayer(missing) error = %v, want NotFound", err)
	}
}

func TestAddLayerAfterReorder(t *testing.T) {
	s := newTestStore()
	sc := s.CreateScene()
	a, _ := s.AddLayer(LayerText, sc.ID)
	b, _ := s.AddLayer(LayerText, sc.ID)
	_ = s.ReorderLayer(a.ID, 5)

	c, _ := s.AddLayer(LayerText, sc.ID)
	if c.ZIndex != 3 {
		t.Errorf("new zIndex = %d, want count+1 = 3", c.ZIndex)
	}
	want := []*Layer{b, c, a}
	for i, l := range sc.Layers {
		if l != want[i] {
			t.Errorf("Layers[%d] = %s (z=%d), want %s", i, l.ID, l.ZIndex, want[i].ID)
		}
	}
}

func TestReorderLooseLayer(t *testing.T) {
	s := newTestStore()
	l1, _ := s.AddLayer(LayerText, "")
	l2, _ := s.AddLayer(LayerImage, "")

	_ = s.ReorderLayer(l1.ID, 3)
	if s.LooseLayers()[0] != l2 || s.LooseLayers()[1] != l1 {
		t.Error("loose layers not re-sorted by zIndex")
	}
}

func TestUpdateGeometry(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	l, _ := s.AddLayer(LayerText, a.ID)
	c, _ := s.AddChoice(a.ID)

	r := Rect{X: -50, Y: 9000, Width: 1, Height: 2}
	for _, id := range []string{a.ID, l.ID, c.ID} {
		if err := s.UpdateGeometry(id, r); err != nil {
			t.Fatalf("UpdateGeometry(%s): %v", id, err)
		}
	}
	if a.Rect != r || l.Rect != r || c.Rect != r {
		t.Error("geometry not stored exactly as given")
	}
	if err := s.UpdateGeometry("missing", r); !errs.IsNotFound(err) {
		t.Errorf("UpdateGeometry(missing) error = %v, want NotFound", err)
	}
}

func TestLayerSetters(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()
	text, _ := s.AddLayer(LayerText, a.ID)
	img, _ := s.AddLayer(LayerImage, a.ID)

	if err := s.SetTextStyle(text.ID, TextStyle{FontSize: 0, Bold: true}); err != nil {
		t.Fatalf("SetTextStyle: %v", err)
	}
	if text.Style.FontSize != DefaultFontSize || !text.Style.Bold || text.Style.FontFamily != DefaultFontFamily {
		t.Errorf("Style = %+v", text.Style)
	}
	if err := s.SetLayerContent(text.ID, "<b>hi</b>"); err != nil || text.Content != "<b>hi</b>" {
		t.Errorf("SetLayerContent: %v, content %q", err, text.Content)
	}
	if err := s.SetImageSource(img.ID, "https://example.com/a.png"); err != nil {
		t.Errorf("SetImageSource: %v", err)
	}

	if err := s.SetLayerContent(img.ID, "x"); errs.GetCode(err) != errs.ErrCodeInvalidInput {
		t.Errorf("SetLayerContent(image) code = %q", errs.GetCode(err))
	}
	if err := s.SetImageSource(text.ID, ""); errs.GetCode(err) != errs.ErrCodeInvalidInput {
		t.Errorf("SetImageSource(text) code = %q", errs.GetCode(err))
	}
	if err := s.SetImageSource(img.ID, "javascript:alert(1)"); err == nil {
		t.Error("SetImageSource(javascript:) succeeded")
	}
	if img.Src != "https://example.com/a.png" {
		t.Errorf("Src = %q after rejected update", img.Src)
	}
}

func TestSceneSetters(t *testing.T) {
	s := newTestStore()
	a := s.CreateScene()

	_ = s.SetSceneTitle(a.ID, "Forest")
	_ = s.SetSceneBody(a.ID, "<p>Dark</p>")
	_ = s.SetSceneBackground(a.ID, "")
	if a.Title != "Forest" || a.Body != "<p>Dark</p>" || a.Background != DefaultSceneBackground {
		t.Errorf("scene = %+v", a)
	}
	if err := s.SetSceneTitle("missing", "x"); !errs.IsNotFound(err) {
		t.Errorf("SetSceneTitle(missing) error = %v", err)
	}
}

func TestReplaceRebuildsIndex(t *testing.T) {
	p := NewProject()
	sc := &Scene{ID: "s1", Layers: []*Layer{{ID: "l1", Kind: LayerText, ZIndex: 1}}}
	p.Scenes = append(p.Scenes, sc)
	p.LooseLayers = append(p.LooseLayers, &Layer{ID: "l2", Kind: LayerImage, ZIndex: 1})

	s := newTestStore()
	s.Replace(p)

	if s.FindSceneOf("l1") != sc {
		t.Error("FindSceneOf(l1) after Replace")
	}
	if s.Layer("l2") == nil {
		t.Error("Layer(l2) after Replace")
	}
	next := s.CreateScene()
	if next.X != 100 {
		t.Errorf("scene after Replace at x=%v, want 100", next.X)
	}
}

func TestProjectClone(t *testing.T) {
	s := newTestStore()
	sc := s.CreateScene()
	c, _ := s.AddChoice(sc.ID)
	l, _ := s.AddLayer(LayerText, sc.ID)
	_, _ = s.AddLayer(LayerImage, "")

	cp := s.Project().Clone()
	_ = s.SetSceneTitle(sc.ID, "changed")
	_ = s.SetChoiceText(c.ID, "changed")
	_ = s.SetLayerContent(l.ID, "changed")
	s.DeleteScene(sc.ID)

	if len(cp.Scenes) != 1 || len(cp.LooseLayers) != 1 {
		t.Fatalf("clone shape = %d scenes, %d loose", len(cp.Scenes), len(cp.LooseLayers))
	}
	got := cp.Scenes[0]
	if got.Title == "changed" || got.Choices[0].Text == "changed" || got.Layers[0].Content == "changed" {
		t.Error("clone shares state with the original")
	}
}
