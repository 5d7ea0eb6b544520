package script

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/chalkboard-backend/internal/logger"
)

// Generator is the slice of the AI client the enricher needs.
// services.OpenAIClient satisfies it.
type Generator interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

const (
	DefaultNarrationWordFloor   = 90
	DefaultNarrationWordCeiling = 140

	maxWrappedLines  = 4
	wordsPerLine     = 14
	minWriteTextDirs = 3
)

var fractionPattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

type Enricher struct {
	log         *logger.Logger
	ai          Generator
	wordFloor   int
	wordCeiling int
}

func NewEnricher(baseLog *logger.Logger, ai Generator, wordFloor, wordCeiling int) *Enricher {
	if wordFloor <= 0 {
		wordFloor = DefaultNarrationWordFloor
	}
	if wordCeiling <= wordFloor {
		wordCeiling = wordFloor + 50
	}
	return &Enricher{
		log:         baseLog.With("component", "Enricher"),
		ai:          ai,
		wordFloor:   wordFloor,
		wordCeiling: wordCeiling,
	}
}

// EnrichChunk brings a thin chunk up to the minimum content invariant:
// narration at or above the word floor, and at least three WRITE_TEXT
// directives. Narration expansion is best-effort and never fatal; on
// any generation error the original narration is kept.
func (e *Enricher) EnrichChunk(ctx context.Context, chunk *Chunk) {
	if wordCount(chunk.NarrationText) < e.wordFloor {
		expanded, err := e.expandNarration(ctx, chunk)
		switch {
		case err != nil:
			e.log.Warn("Narration expansion degraded, keeping original narration",
				"chunk_id", chunk.ID, "error", err)
		case wordCount(expanded) < e.wordFloor:
			// A rewrite that is still under the floor counts as a
			// failed expansion; the original text is kept.
			e.log.Warn("Narration rewrite under word floor, keeping original narration",
				"chunk_id", chunk.ID, "words", wordCount(expanded), "floor", e.wordFloor)
		default:
			chunk.NarrationText = expanded
		}
	}

	// Existing authored text is trusted as-is; synthesis only fills in
	// when the generator supplied fewer than three text lines.
	if countWriteText(chunk.Directives) >= minWriteTextDirs {
		return
	}
	e.synthesizeDirectives(chunk)
}

func (e *Enricher) expandNarration(ctx context.Context, chunk *Chunk) (string, error) {
	obj, err := e.ai.GenerateJSON(ctx,
		"You expand short lesson narration for a whiteboard tutor. Keep the same concept and the same numeric facts. Do not introduce new topics.",
		fmt.Sprintf(
			"Chunk title: %s\n\nNarration:\n%s\n\nRewrite the narration at %d-%d words, keeping every number and fact unchanged.",
			chunk.Title, chunk.NarrationText, e.wordFloor, e.wordCeiling,
		),
		"narration_rewrite",
		NarrationRewriteSchema(),
	)
	if err != nil {
		return "", err
	}
	expanded := strings.TrimSpace(fmt.Sprint(obj["narration"]))
	if expanded == "" || expanded == "<nil>" {
		return "", fmt.Errorf("empty narration in rewrite response")
	}
	return expanded, nil
}

// synthesizeDirectives builds the minimum-viable directive set from the
// narration: a title line, up to four wrapped narration lines, one
// example line, and a fraction bar when the narration mentions one.
// Synthesized text lines replace any WRITE_TEXT the generator produced
// (fewer than three means the set was incomplete anyway); non-text
// directives are preserved after them.
func (e *Enricher) synthesizeDirectives(chunk *Chunk) {
	kept := make(DirectiveList, 0, len(chunk.Directives))
	for _, d := range chunk.Directives {
		if _, ok := d.(WriteText); !ok {
			kept = append(kept, d)
		}
	}

	out := make(DirectiveList, 0, maxWrappedLines+3+len(kept))
	out = append(out, WriteText{Text: chunk.Title})

	lines := wrapWords(chunk.NarrationText, wordsPerLine, maxWrappedLines)
	if len(lines) == 0 {
		// Empty narration still has to produce a full board: fall back
		// to a line built from the chunk title.
		topic := strings.TrimSpace(chunk.Title)
		if topic == "" {
			topic = "this step"
		}
		lines = []string{"Let's look at " + topic + "."}
	}
	for _, line := range lines {
		out = append(out, WriteText{Text: line})
	}

	out = append(out, WriteText{Text: exampleLine(chunk.NarrationText)})

	if num, den, ok := findFraction(chunk.NarrationText); ok {
		out = append(out, DrawFractionBar{Numerator: num, Denominator: den})
	}

	chunk.Directives = append(out, kept...)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func countWriteText(directives DirectiveList) int {
	n := 0
	for _, d := range directives {
		if _, ok := d.(WriteText); ok {
			n++
		}
	}
	return n
}

func wrapWords(s string, perLine, maxLines int) []string {
	words := strings.Fields(s)
	lines := make([]string, 0, maxLines)
	for start := 0; start < len(words) && len(lines) < maxLines; start += perLine {
		end := start + perLine
		if end > len(words) {
			end = len(words)
		}
		lines = append(lines, strings.Join(words[start:end], " "))
	}
	return lines
}

func exampleLine(narration string) string {
	first := firstSentence(narration)
	words := strings.Fields(first)
	if len(words) > wordsPerLine {
		words = words[:wordsPerLine]
	}
	return "Example: " + strings.Join(words, " ")
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.Index(s, sep); idx >= 0 {
			return s[:idx+1]
		}
	}
	return strings.TrimRight(s, ".!? ")
}

func findFraction(s string) (int, int, bool) {
	m := fractionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	num, err1 := strconv.Atoi(m[1])
	den, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return num, den, true
}
