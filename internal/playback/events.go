package playback

import (
	"fmt"

	"github.com/yungbote/chalkboard-backend/internal/script"
)

// Wire events share one "type" discriminator namespace with the flat
// directive encoding, so a client can switch on a single field.

const (
	EventStepStart = "STEP_START"
	EventStepEnd   = "STEP_END"
	EventLessonEnd = "LESSON_END"
)

type StepStartEvent struct {
	Type     string `json:"type"`
	ChunkID  string `json:"chunk_id"`
	AudioRef string `json:"audio_ref,omitempty"`
}

type StepEndEvent struct {
	Type    string `json:"type"`
	ChunkID string `json:"chunk_id"`
}

type LessonEndEvent struct {
	Type string `json:"type"`
}

// Control messages from the client.

const (
	ControlPause  = "PAUSE"
	ControlResume = "RESUME"
)

type ControlMessage struct {
	Type string `json:"type"`
}

// buildTimeline flattens a script into the exact event sequence a
// session will emit. The sequence is fixed at session start; pause and
// resume only ever affect emission timing.
func buildTimeline(s *script.Script, includePractice bool) []any {
	var events []any
	for _, chunk := range s.Chunks {
		events = append(events, StepStartEvent{Type: EventStepStart, ChunkID: chunk.ID, AudioRef: chunk.AudioRef})
		for _, d := range chunk.Directives {
			events = append(events, script.EncodeDirective(d))
		}
		events = append(events, StepEndEvent{Type: EventStepEnd, ChunkID: chunk.ID})
	}
	if includePractice {
		for i, item := range s.PracticeItems {
			id := fmt.Sprintf("practice-%d", i)
			events = append(events, StepStartEvent{Type: EventStepStart, ChunkID: id})
			for _, d := range item.Directives {
				events = append(events, script.EncodeDirective(d))
			}
			events = append(events, StepEndEvent{Type: EventStepEnd, ChunkID: id})
		}
	}
	events = append(events, LessonEndEvent{Type: EventLessonEnd})
	return events
}
