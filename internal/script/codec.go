package script

import (
	"encoding/json"
	"fmt"
)

// The generation service's structured-output mode requires a flat
// object with every field listed in `required` and no unions, so the
// directive union travels as one record with all fields nullable.
// Invariants are re-established here, at decode time; invalid states
// never propagate past this boundary.

type FlatDirective struct {
	Type           string   `json:"type"`
	Text           *string  `json:"text"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
	Speed          *string  `json:"speed"`
	DelayPerUnitMS *int     `json:"delay_per_unit_ms"`
	Numerator      *int     `json:"numerator"`
	Denominator    *int     `json:"denominator"`
	W              *float64 `json:"w"`
	H              *float64 `json:"h"`
}

type SchemaViolationError struct {
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation: %s", e.Reason)
	}
	return fmt.Sprintf("schema violation: field %q: %s", e.Field, e.Reason)
}

func violation(field, reason string) error {
	return &SchemaViolationError{Field: field, Reason: reason}
}

func DecodeDirective(fd FlatDirective) (Directive, error) {
	switch DirectiveType(fd.Type) {
	case TypeWriteText:
		if fd.Text == nil {
			return nil, violation("text", "WRITE_TEXT requires text (empty string allowed, null is not)")
		}
		d := WriteText{
			Text:           *fd.Text,
			X:              fd.X,
			Y:              fd.Y,
			DelayPerUnitMS: fd.DelayPerUnitMS,
		}
		if fd.Speed != nil {
			d.Speed = Speed(*fd.Speed)
		}
		return d, nil

	case TypeDrawFractionBar:
		if fd.Numerator == nil || fd.Denominator == nil {
			return nil, violation("numerator/denominator", "DRAW_FRACTION_BAR requires both numerator and denominator")
		}
		return DrawFractionBar{
			Numerator:   *fd.Numerator,
			Denominator: *fd.Denominator,
			X:           fd.X,
			Y:           fd.Y,
		}, nil

	case TypeErase:
		present := 0
		for _, p := range []bool{fd.X != nil, fd.Y != nil, fd.W != nil, fd.H != nil} {
			if p {
				present++
			}
		}
		if present != 0 && present != 4 {
			return nil, violation("x/y/w/h", "ERASE bounds must be all present or all absent")
		}
		return Erase{X: fd.X, Y: fd.Y, W: fd.W, H: fd.H}, nil

	default:
		return nil, violation("type", fmt.Sprintf("unknown directive type %q", fd.Type))
	}
}

// EncodeDirective sets every field outside the active variant to null.
func EncodeDirective(d Directive) FlatDirective {
	switch v := d.(type) {
	case WriteText:
		fd := FlatDirective{
			Type:           string(TypeWriteText),
			Text:           &v.Text,
			X:              v.X,
			Y:              v.Y,
			DelayPerUnitMS: v.DelayPerUnitMS,
		}
		if v.Speed != "" {
			s := string(v.Speed)
			fd.Speed = &s
		}
		return fd
	case DrawFractionBar:
		return FlatDirective{
			Type:        string(TypeDrawFractionBar),
			Numerator:   &v.Numerator,
			Denominator: &v.Denominator,
			X:           v.X,
			Y:           v.Y,
		}
	case Erase:
		return FlatDirective{
			Type: string(TypeErase),
			X:    v.X,
			Y:    v.Y,
			W:    v.W,
			H:    v.H,
		}
	default:
		// Closed union; unreachable for values built in this package.
		return FlatDirective{Type: string(d.DirectiveType())}
	}
}

// DirectiveList carries the union in memory and the flat encoding on
// the wire and in the persisted script row.
type DirectiveList []Directive

func (l DirectiveList) MarshalJSON() ([]byte, error) {
	flats := make([]FlatDirective, 0, len(l))
	for _, d := range l {
		flats = append(flats, EncodeDirective(d))
	}
	return json.Marshal(flats)
}

func (l *DirectiveList) UnmarshalJSON(data []byte) error {
	var flats []FlatDirective
	if err := json.Unmarshal(data, &flats); err != nil {
		return err
	}
	out := make(DirectiveList, 0, len(flats))
	for i, fd := range flats {
		d, err := DecodeDirective(fd)
		if err != nil {
			return fmt.Errorf("directive %d: %w", i, err)
		}
		out = append(out, d)
	}
	*l = out
	return nil
}
