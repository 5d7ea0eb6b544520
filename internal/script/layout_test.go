package script

import (
	"bytes"
	"encoding/json"
	"testing"
)

func unplacedChunk(id string, lines int) Chunk {
	c := Chunk{ID: id, Title: "t", NarrationText: "n"}
	for i := 0; i < lines; i++ {
		c.Directives = append(c.Directives, WriteText{Text: "line"})
	}
	return c
}

func TestSanitizeAssignsStrictlyIncreasingY(t *testing.T) {
	s := &Script{Chunks: []Chunk{unplacedChunk("a", 4), unplacedChunk("b", 3)}}
	SanitizeScript(s)

	for ci, chunk := range s.Chunks {
		prev := -1.0
		for di, d := range chunk.Directives {
			wt := d.(WriteText)
			if wt.Y == nil || wt.X == nil {
				t.Fatalf("chunk %d directive %d: coordinates not assigned", ci, di)
			}
			if *wt.Y <= prev {
				t.Fatalf("chunk %d directive %d: y %v not strictly increasing (prev %v)", ci, di, *wt.Y, prev)
			}
			prev = *wt.Y
			if wt.Speed != SpeedWord {
				t.Fatalf("chunk %d directive %d: speed default not applied", ci, di)
			}
			if wt.DelayPerUnitMS == nil || *wt.DelayPerUnitMS != DefaultDelayPerUnitMS {
				t.Fatalf("chunk %d directive %d: delay default not applied", ci, di)
			}
		}
	}

	firstA := s.Chunks[0].Directives[0].(WriteText)
	if *firstA.Y != BaseY {
		t.Fatalf("first line of first chunk: want y=%v got %v", BaseY, *firstA.Y)
	}
	firstB := s.Chunks[1].Directives[0].(WriteText)
	if *firstB.Y != BaseY+RowHeight {
		t.Fatalf("first line of second chunk: want y=%v got %v", BaseY+RowHeight, *firstB.Y)
	}
}

func TestSanitizePlacesFractionBarBelowLastText(t *testing.T) {
	s := &Script{Chunks: []Chunk{{
		ID: "a",
		Directives: DirectiveList{
			WriteText{Text: "one"},
			WriteText{Text: "two"},
			DrawFractionBar{Numerator: 3, Denominator: 4},
		},
	}}}
	SanitizeScript(s)

	lastText := s.Chunks[0].Directives[1].(WriteText)
	bar := s.Chunks[0].Directives[2].(DrawFractionBar)
	if bar.Y == nil {
		t.Fatalf("fraction bar not placed")
	}
	if *bar.Y != *lastText.Y+LineHeight {
		t.Fatalf("fraction bar: want y=%v got %v", *lastText.Y+LineHeight, *bar.Y)
	}
}

func TestSanitizeRepairsDenominator(t *testing.T) {
	s := &Script{Chunks: []Chunk{{
		ID:         "a",
		Directives: DirectiveList{DrawFractionBar{Numerator: 1, Denominator: 0}},
	}}}
	SanitizeScript(s)
	if got := s.Chunks[0].Directives[0].(DrawFractionBar).Denominator; got != 1 {
		t.Fatalf("denominator: want 1 got %d", got)
	}
}

func TestSanitizeLeavesEraseUntouched(t *testing.T) {
	s := &Script{Chunks: []Chunk{{
		ID:         "a",
		Directives: DirectiveList{Erase{}, Erase{X: fptr(0), Y: fptr(0), W: fptr(10), H: fptr(10)}},
	}}}
	before, _ := json.Marshal(s.Chunks[0].Directives)
	SanitizeScript(s)
	after, _ := json.Marshal(s.Chunks[0].Directives)
	if !bytes.Equal(before, after) {
		t.Fatalf("erase directives changed by sanitizer:\nbefore=%s\nafter=%s", before, after)
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	s := &Script{
		Chunks: []Chunk{unplacedChunk("a", 3), {
			ID: "b",
			Directives: DirectiveList{
				WriteText{Text: "placed", X: fptr(100), Y: fptr(999), Speed: SpeedChar, DelayPerUnitMS: iptr(40)},
				DrawFractionBar{Numerator: 3, Denominator: 4},
			},
		}},
		PracticeItems: []PracticeItem{{
			Question:      "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: "a",
			Explanation:   "e",
			Directives:    DirectiveList{WriteText{Text: "practice"}},
		}},
	}
	SanitizeScript(s)
	once, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	SanitizeScript(s)
	twice, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("sanitizer not idempotent:\nonce=%s\ntwice=%s", once, twice)
	}
}

func TestSanitizePreservesAssignedCoordinates(t *testing.T) {
	s := &Script{Chunks: []Chunk{{
		ID: "a",
		Directives: DirectiveList{
			WriteText{Text: "placed", X: fptr(400), Y: fptr(42)},
		},
	}}}
	SanitizeScript(s)
	wt := s.Chunks[0].Directives[0].(WriteText)
	if *wt.X != 400 || *wt.Y != 42 {
		t.Fatalf("sanitizer overwrote assigned coordinates: %#v", wt)
	}
}

func TestSanitizePlacesPracticeItemsBelowChunks(t *testing.T) {
	s := &Script{
		Chunks: []Chunk{unplacedChunk("a", 1), unplacedChunk("b", 1)},
		PracticeItems: []PracticeItem{{
			Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a", Explanation: "e",
			Directives: DirectiveList{WriteText{Text: "p"}},
		}},
	}
	SanitizeScript(s)
	p := s.PracticeItems[0].Directives[0].(WriteText)
	want := BaseY + 2*RowHeight
	if *p.Y != want {
		t.Fatalf("practice directive: want y=%v got %v", want, *p.Y)
	}
}
