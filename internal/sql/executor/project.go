package executor

import (
	"github.com/tuannm99/coldb/internal/colstore"
	"github.com/tuannm99/coldb/internal/sql/ast"
)

type output struct {
	pos   int
	col   *colstore.Column
	label string
}

// projection resolves the requested columns; none means every column of
// every table. A qualified reference keeps its table.col label; a bare one
// is qualified only when the name exists in more than one table.
func (sc *scope) projection(refs []string) ([]output, error) {
	counts := make(map[string]int)
	for _, t := range sc.tables {
		for _, c := range t.Columns() {
			counts[c.Name()]++
		}
	}
	label := func(pos int, c *colstore.Column) string {
		if counts[c.Name()] > 1 {
			return sc.names[pos] + "." + c.Name()
		}
		return c.Name()
	}

	var outs []output
	if len(refs) == 0 {
		for pos, t := range sc.tables {
			for _, c := range t.Columns() {
				outs = append(outs, output{pos: pos, col: c, label: label(pos, c)})
			}
		}
		return outs, nil
	}
	for _, ref := range refs {
		r, err := sc.resolve(ref)
		if err != nil {
			return nil, err
		}
		l := label(r.pos, r.col)
		if tname, _ := ast.SplitColumn(ref); tname != "" {
			l = sc.names[r.pos] + "." + r.col.Name()
		}
		outs = append(outs, output{pos: r.pos, col: r.col, label: l})
	}
	return outs, nil
}
