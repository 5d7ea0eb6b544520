package script

// Layout sanitization fills in missing coordinates, timing, and pacing
// deterministically. It only ever writes fields that are absent, so
// sanitizing an already-sanitized script is a no-op and assembly
// retries are safe.

const (
	BaseY      = 80.0
	RowHeight  = 220.0
	LineHeight = 40.0
	TextStartX = 60.0

	DefaultDelayPerUnitMS = 250
)

// SanitizeScript lays out chunk directives row by row and practice-item
// directives below all chunks, with an independent counter per block.
func SanitizeScript(s *Script) {
	for i := range s.Chunks {
		baseY := BaseY + float64(i)*RowHeight
		sanitizeDirectives(s.Chunks[i].Directives, baseY)
	}
	for i := range s.PracticeItems {
		baseY := BaseY + float64(len(s.Chunks)+i)*RowHeight
		sanitizeDirectives(s.PracticeItems[i].Directives, baseY)
	}
}

func sanitizeDirectives(directives DirectiveList, baseY float64) {
	lineIndex := 0
	lastTextY := baseY

	for i, d := range directives {
		switch v := d.(type) {
		case WriteText:
			if v.X == nil {
				x := TextStartX
				v.X = &x
			}
			if v.Y == nil {
				y := baseY + float64(lineIndex)*LineHeight
				v.Y = &y
				lineIndex++
			}
			if v.Speed == "" {
				v.Speed = SpeedWord
			}
			if v.DelayPerUnitMS == nil {
				delay := DefaultDelayPerUnitMS
				v.DelayPerUnitMS = &delay
			}
			lastTextY = *v.Y
			directives[i] = v

		case DrawFractionBar:
			if v.Denominator <= 0 {
				v.Denominator = 1
			}
			if v.X == nil {
				x := TextStartX
				v.X = &x
			}
			if v.Y == nil {
				// Just below the most recently placed text line.
				y := lastTextY + LineHeight
				v.Y = &y
			}
			directives[i] = v

		case Erase:
			// Both valid ERASE forms are already fully specified or
			// fully unspecified; never auto-positioned.
		}
	}
}
