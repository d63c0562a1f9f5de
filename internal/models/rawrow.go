package models

import "strconv"

type CellKind uint8

const (
	CellAbsent CellKind = iota
	CellNumber
	CellString
)

// Cell is one spreadsheet value: a number, a string, or absent.
type Cell struct {
	Kind CellKind
	Num  float64
	Str  string
}

func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }
func StringCell(s string) Cell  { return Cell{Kind: CellString, Str: s} }

func (c Cell) IsAbsent() bool { return c.Kind == CellAbsent }

// Text renders the cell as a string. Absent cells render as "".
func (c Cell) Text() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellString:
		return c.Str
	default:
		return ""
	}
}

// RawRow maps header strings to cells, remembering insertion order.
type RawRow struct {
	keys  []string
	cells map[string]Cell
}

func NewRawRow() RawRow {
	return RawRow{cells: make(map[string]Cell)}
}

// Set stores a cell. Absent cells are ignored.
func (r *RawRow) Set(header string, c Cell) {
	if c.IsAbsent() {
		return
	}
	if r.cells == nil {
		r.cells = make(map[string]Cell)
	}
	if _, ok := r.cells[header]; !ok {
		r.keys = append(r.keys, header)
	}
	r.cells[header] = c
}

func (r RawRow) Get(header string) Cell {
	if header == "" {
		return Cell{}
	}
	return r.cells[header]
}

func (r RawRow) Headers() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r RawRow) Len() int { return len(r.keys) }
