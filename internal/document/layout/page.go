package layout

// PageMargin is the fixed margin, in millimetres, on every document page.
const PageMargin = 15.0

const (
	fontFamily = "Arial"

	lineHeight   = 5.0
	boxPadding   = 3.0
	underlineGap = 1.0
)

// Society is the header block printed on every document. Empty fields are
// skipped.
type Society struct {
	Name         string
	Registration string
	Address      string
	Phone        string
}
