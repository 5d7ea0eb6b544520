package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/chalkboard-backend/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type fakeGenerator struct {
	narration string
	err       error
	calls     int
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"narration": f.narration}, nil
}

func repeatWords(word string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

func TestEnrichExpandsShortNarrationAndSynthesizes(t *testing.T) {
	expanded := repeatWords("fraction", 95)
	gen := &fakeGenerator{narration: expanded}
	e := NewEnricher(mustTestLogger(t), gen, 0, 0)

	chunk := &Chunk{ID: "c1", Title: "Fractions", NarrationText: "Fractions split a whole into equal parts."}
	e.EnrichChunk(context.Background(), chunk)

	if gen.calls != 1 {
		t.Fatalf("expected one expansion call, got %d", gen.calls)
	}
	if got := wordCount(chunk.NarrationText); got < DefaultNarrationWordFloor {
		t.Fatalf("narration word count: want >= %d got %d", DefaultNarrationWordFloor, got)
	}
	if got := countWriteText(chunk.Directives); got < 3 {
		t.Fatalf("WRITE_TEXT count: want >= 3 got %d", got)
	}
	title := chunk.Directives[0].(WriteText)
	if title.Text != "Fractions" {
		t.Fatalf("first directive must carry the title, got %q", title.Text)
	}
}

func TestEnrichDegradesOnGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream 503")}
	e := NewEnricher(mustTestLogger(t), gen, 0, 0)

	original := "Short narration about halves."
	chunk := &Chunk{ID: "c1", Title: "Halves", NarrationText: original}
	e.EnrichChunk(context.Background(), chunk)

	if chunk.NarrationText != original {
		t.Fatalf("narration must be unchanged on expansion failure, got %q", chunk.NarrationText)
	}
	if got := countWriteText(chunk.Directives); got < 3 {
		t.Fatalf("directive synthesis must still run on expansion failure: got %d WRITE_TEXT", got)
	}
}

func TestEnrichRejectsUnderFloorRewrite(t *testing.T) {
	gen := &fakeGenerator{narration: "Still far too short."}
	e := NewEnricher(mustTestLogger(t), gen, 20, 60)

	original := "One half is 1/2."
	chunk := &Chunk{ID: "c1", Title: "Halves", NarrationText: original}
	e.EnrichChunk(context.Background(), chunk)

	if gen.calls != 1 {
		t.Fatalf("expected one expansion call, got %d", gen.calls)
	}
	if chunk.NarrationText != original {
		t.Fatalf("an under-floor rewrite must be discarded, got %q", chunk.NarrationText)
	}
	if got := countWriteText(chunk.Directives); got < 3 {
		t.Fatalf("WRITE_TEXT count: want >= 3 got %d", got)
	}
}

func TestEnrichEmptyNarrationStillFillsBoard(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream 503")}
	e := NewEnricher(mustTestLogger(t), gen, 0, 0)

	chunk := &Chunk{ID: "c1", Title: "Halves", NarrationText: ""}
	e.EnrichChunk(context.Background(), chunk)

	if got := countWriteText(chunk.Directives); got < 3 {
		t.Fatalf("WRITE_TEXT count on empty narration: want >= 3 got %d", got)
	}
	if title := chunk.Directives[0].(WriteText); title.Text != "Halves" {
		t.Fatalf("first directive must carry the title, got %q", title.Text)
	}
	for i, d := range chunk.Directives {
		if wt, ok := d.(WriteText); ok && strings.TrimSpace(wt.Text) == "" {
			t.Fatalf("directive %d is a blank WRITE_TEXT", i)
		}
	}
}

func TestEnrichSkipsExpansionAboveFloor(t *testing.T) {
	gen := &fakeGenerator{narration: "should never be used"}
	e := NewEnricher(mustTestLogger(t), gen, 0, 0)

	chunk := &Chunk{ID: "c1", Title: "Long", NarrationText: repeatWords("word", 120)}
	e.EnrichChunk(context.Background(), chunk)

	if gen.calls != 0 {
		t.Fatalf("expansion must be skipped above the word floor")
	}
}

func TestEnrichTrustsExistingDirectives(t *testing.T) {
	gen := &fakeGenerator{narration: repeatWords("word", 100)}
	e := NewEnricher(mustTestLogger(t), gen, 0, 0)

	authored := DirectiveList{
		WriteText{Text: "one"},
		WriteText{Text: "two"},
		WriteText{Text: "three"},
	}
	chunk := &Chunk{ID: "c1", Title: "Authored", NarrationText: "short", Directives: authored}
	e.EnrichChunk(context.Background(), chunk)

	if len(chunk.Directives) != 3 {
		t.Fatalf("authored directives must be trusted as-is, got %d", len(chunk.Directives))
	}
	for i, d := range chunk.Directives {
		if d.(WriteText).Text != authored[i].(WriteText).Text {
			t.Fatalf("directive %d rewritten: %#v", i, d)
		}
	}
}

func TestEnrichAppendsFractionBar(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	e := NewEnricher(mustTestLogger(t), gen, 0, 0)

	chunk := &Chunk{ID: "c1", Title: "Fractions", NarrationText: "Take 3/4 of a pizza."}
	e.EnrichChunk(context.Background(), chunk)

	var bar *DrawFractionBar
	for _, d := range chunk.Directives {
		if b, ok := d.(DrawFractionBar); ok {
			bar = &b
			break
		}
	}
	if bar == nil {
		t.Fatalf("expected a DRAW_FRACTION_BAR directive for narration with a fraction")
	}
	if bar.Numerator != 3 || bar.Denominator != 4 {
		t.Fatalf("fraction values: want 3/4 got %d/%d", bar.Numerator, bar.Denominator)
	}
}

// Full pipeline scenario: thin fraction chunk in, laid-out board out.
func TestEnrichThenSanitizePizzaScenario(t *testing.T) {
	// Expansion that wraps into exactly two narration lines.
	expanded := "When you take 3/4 of a pizza you split the whole pizza into four equal slices. Then you keep three of those four slices for yourself."
	gen := &fakeGenerator{narration: expanded}
	e := NewEnricher(mustTestLogger(t), gen, 20, 60)

	chunk := Chunk{
		ID:            "c1",
		Title:         "Three quarters",
		NarrationText: "Take 3/4 of a pizza and see what is left over today.",
		Directives:    DirectiveList{WriteText{Text: "3/4"}},
	}
	e.EnrichChunk(context.Background(), &chunk)

	s := &Script{Title: "Fractions", GradeLevel: "3", Chunks: []Chunk{chunk}}
	SanitizeScript(s)
	got := s.Chunks[0]

	var texts []WriteText
	var bar *DrawFractionBar
	for _, d := range got.Directives {
		switch v := d.(type) {
		case WriteText:
			texts = append(texts, v)
		case DrawFractionBar:
			bar = &v
		}
	}

	if len(texts) != 4 {
		t.Fatalf("want a title line plus three further lines, got %d text lines", len(texts))
	}
	if texts[0].Text != "Three quarters" || *texts[0].Y != BaseY {
		t.Fatalf("title line: want %q at y=%v, got %q at y=%v", "Three quarters", BaseY, texts[0].Text, *texts[0].Y)
	}
	prev := *texts[0].Y
	for i, wt := range texts[1:] {
		if *wt.Y <= prev {
			t.Fatalf("line %d: y %v not strictly increasing (prev %v)", i+1, *wt.Y, prev)
		}
		prev = *wt.Y
	}
	if bar == nil {
		t.Fatalf("expected a fraction bar")
	}
	if bar.Numerator != 3 || bar.Denominator != 4 {
		t.Fatalf("fraction values: want 3/4 got %d/%d", bar.Numerator, bar.Denominator)
	}
	if *bar.Y != *texts[len(texts)-1].Y+LineHeight {
		t.Fatalf("fraction bar must sit below the last text line: bar y=%v last text y=%v", *bar.Y, *texts[len(texts)-1].Y)
	}
}
