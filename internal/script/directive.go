package script

// Whiteboard directives as consumed by the rendering surface. The
// internal representation is a closed tagged union; the all-fields-
// nullable flat record lives in codec.go and never escapes it.

type DirectiveType string

const (
	TypeWriteText       DirectiveType = "WRITE_TEXT"
	TypeDrawFractionBar DirectiveType = "DRAW_FRACTION_BAR"
	TypeErase           DirectiveType = "ERASE"
)

type Speed string

const (
	SpeedWord Speed = "word"
	SpeedChar Speed = "char"
)

type Directive interface {
	DirectiveType() DirectiveType
}

// WriteText reveals text at a board position, one unit (word or char)
// per DelayPerUnitMS milliseconds.
type WriteText struct {
	Text           string
	X              *float64
	Y              *float64
	Speed          Speed // "" until sanitized
	DelayPerUnitMS *int
}

func (WriteText) DirectiveType() DirectiveType { return TypeWriteText }

type DrawFractionBar struct {
	Numerator   int
	Denominator int
	X           *float64
	Y           *float64
}

func (DrawFractionBar) DirectiveType() DirectiveType { return TypeDrawFractionBar }

// Erase clears either the whole canvas (no bounds) or a rectangle
// (all four bounds). A partial bound set is invalid and rejected by
// the codec.
type Erase struct {
	X *float64
	Y *float64
	W *float64
	H *float64
}

func (Erase) DirectiveType() DirectiveType { return TypeErase }

func (e Erase) Bounded() bool {
	return e.X != nil && e.Y != nil && e.W != nil && e.H != nil
}
