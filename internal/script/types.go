package script

// Pure JSON contract for the lesson script. Not a DB model; the row in
// postgres stores this serialized as jsonb.

type Chunk struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	NarrationText string        `json:"narration_text"`
	Directives    DirectiveList `json:"directives"`
	AudioRef      string        `json:"audio_ref,omitempty"`
}

type PracticeItem struct {
	Question      string        `json:"question"`
	Options       []string      `json:"options"`
	CorrectAnswer string        `json:"correct_answer"`
	Explanation   string        `json:"explanation"`
	// nil means "no visualization for this item"; an empty list is
	// never produced.
	Directives DirectiveList `json:"directives,omitempty"`
}

type Script struct {
	Title         string         `json:"title"`
	GradeLevel    string         `json:"grade_level"`
	Chunks        []Chunk        `json:"chunks"`
	PracticeItems []PracticeItem `json:"practice_items"`
}
