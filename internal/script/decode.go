package script

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Raw shapes as returned by the generation service, before the
// directive invariants have been checked.

type rawDirectiveChunk struct {
	Title         string          `json:"title"`
	NarrationText string          `json:"narration_text"`
	Directives    []FlatDirective `json:"directives"`
}

type rawPracticeItem struct {
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
	Directives    []FlatDirective `json:"directives"`
}

type rawScript struct {
	Title         string              `json:"title"`
	GradeLevel    string              `json:"grade_level"`
	Chunks        []rawDirectiveChunk `json:"chunks"`
	PracticeItems []rawPracticeItem   `json:"practice_items"`
}

// DecodeGenerated validates a structured-output object into a Script.
// Any directive violation is fatal; the pipeline never repairs past
// this boundary.
func DecodeGenerated(obj map[string]any) (*Script, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal generated object: %w", err)
	}
	var raw rawScript
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, violation("", fmt.Sprintf("generated object does not match script shape: %v", err))
	}

	out := &Script{
		Title:      raw.Title,
		GradeLevel: raw.GradeLevel,
	}

	for ci, rc := range raw.Chunks {
		chunk := Chunk{
			ID:            uuid.New().String(),
			Title:         rc.Title,
			NarrationText: rc.NarrationText,
			Directives:    make(DirectiveList, 0, len(rc.Directives)),
		}
		for di, fd := range rc.Directives {
			d, err := DecodeDirective(fd)
			if err != nil {
				return nil, fmt.Errorf("chunk %d directive %d: %w", ci, di, err)
			}
			chunk.Directives = append(chunk.Directives, d)
		}
		out.Chunks = append(out.Chunks, chunk)
	}

	for pi, rp := range raw.PracticeItems {
		if len(rp.Options) != 4 {
			return nil, violation("options", fmt.Sprintf("practice item %d: expected 4 options, got %d", pi, len(rp.Options)))
		}
		item := PracticeItem{
			Question:      rp.Question,
			Options:       rp.Options,
			CorrectAnswer: rp.CorrectAnswer,
			Explanation:   rp.Explanation,
		}
		if rp.Directives != nil {
			item.Directives = make(DirectiveList, 0, len(rp.Directives))
			for di, fd := range rp.Directives {
				d, err := DecodeDirective(fd)
				if err != nil {
					return nil, fmt.Errorf("practice item %d directive %d: %w", pi, di, err)
				}
				item.Directives = append(item.Directives, d)
			}
		}
		out.PracticeItems = append(out.PracticeItems, item)
	}

	return out, nil
}
