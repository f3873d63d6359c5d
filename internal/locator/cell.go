// internal/locator/cell.go
package locator

import (
	"fmt"

	"github.com/xkilldash9x/docdriver/internal/script"
)

// Table locates a table by id or 1-based index.
type Table struct {
	Strategy Strategy
	ID       string
	Index    int
}

// Row locates a table row by id, or by 1-based index within Table.
type Row struct {
	Strategy Strategy
	ID       string
	Index    int
	Table    *Table
}

// Cell locates a table cell by id, or by 1-based index within Row.
type Cell struct {
	Strategy Strategy
	ID       string
	Index    int
	Row      *Row
}

func (t Table) String() string {
	if t.Strategy == ByID {
		return fmt.Sprintf("table %q", t.ID)
	}
	return fmt.Sprintf("table %d", t.Index)
}

func (r Row) String() string {
	s := fmt.Sprintf("row %d", r.Index)
	if r.Strategy == ByID {
		s = fmt.Sprintf("row %q", r.ID)
	}
	if r.Table != nil {
		s += " of " + r.Table.String()
	}
	return s
}

func (c Cell) String() string {
	s := fmt.Sprintf("cell %d", c.Index)
	if c.Strategy == ByID {
		s = fmt.Sprintf("cell %q", c.ID)
	}
	if c.Row != nil {
		s += " of " + c.Row.String()
	}
	return s
}

// What is the cell's identifying value for error messages.
func (c Cell) What() string {
	if c.Strategy == ByID {
		return c.ID
	}
	return fmt.Sprintf("%d", c.Index)
}

// CompileCell resolves a cell in two stages (owning row, then the row's
// cells) and returns the rewrite rule that makes that cell the lookup root.
func CompileCell(c Cell) (script.Rule, error) {
	fail := func(strategy Strategy, element, reason string) (script.Rule, error) {
		return script.Rule{}, &UnsupportedError{Element: element, Strategy: strategy.String(), Reason: reason}
	}

	if c.Strategy == ByID {
		return script.Cell(c.String(), "getElementById("+script.Quote(c.ID)+")"), nil
	}
	if c.Strategy != ByIndex {
		return fail(c.Strategy, "TableCell", "cells are located by id or index")
	}
	if c.Row == nil {
		return fail(c.Strategy, "TableCell", "an index needs an owning row")
	}
	if c.Index < 1 {
		return fail(c.Strategy, "TableCell", fmt.Sprintf("index must be a positive integer, got %d", c.Index))
	}
	cells := fmt.Sprintf("cells[%d]", c.Index-1)

	row := c.Row
	switch row.Strategy {
	case ByID:
		return script.Cell(c.String(), "getElementById("+script.Quote(row.ID)+")", cells), nil
	case ByIndex:
		if row.Index < 1 {
			return fail(row.Strategy, "TableRow", fmt.Sprintf("index must be a positive integer, got %d", row.Index))
		}
		if row.Table == nil {
			return fail(row.Strategy, "TableRow", "an index needs an owning table")
		}
		rows := fmt.Sprintf("rows[%d]", row.Index-1)
		table := row.Table
		switch table.Strategy {
		case ByID:
			return script.Cell(c.String(), "getElementById("+script.Quote(table.ID)+")", rows, cells), nil
		case ByIndex:
			if table.Index < 1 {
				return fail(table.Strategy, "Table", fmt.Sprintf("index must be a positive integer, got %d", table.Index))
			}
			first := fmt.Sprintf("getElementsByTagName(\"TABLE\")[%d]", table.Index-1)
			return script.Cell(c.String(), first, rows, cells), nil
		default:
			return fail(table.Strategy, "Table", "tables are located by id or index")
		}
	default:
		return fail(row.Strategy, "TableRow", "rows are located by id or index")
	}
}
