package clean

import (
	"dataclean/internal/probe"
	"dataclean/internal/table"
)

// ConvertColumnToDatetime returns a table whose column name is Datetime.
//
// Categorical cells are parsed with probe's loose layouts; a cell that does
// not parse becomes missing. The conversion fails as a whole only when the
// column has present cells and none of them parse, or when the column is
// numeric. A column that is already Datetime is returned unchanged.
func ConvertColumnToDatetime(t *table.Table, name string) (*table.Table, error) {
	c, err := t.Lookup(name)
	if err != nil {
		return nil, err
	}

	switch c.Type {
	case table.Datetime:
		return t, nil
	case table.Numeric:
		return nil, &table.ConversionError{Column: name, Type: table.Datetime, Reason: "column is numeric"}
	}

	out := table.NewColumn(name, table.Datetime, len(c.Cells))
	present, parsed := 0, 0
	for i, v := range c.Cells {
		if v == nil {
			continue
		}
		present++
		if ts, _, ok := probe.ParseTimestampLoose(v.(string)); ok {
			out.Cells[i] = ts
			parsed++
		}
	}
	if present > 0 && parsed == 0 {
		return nil, &table.ConversionError{Column: name, Type: table.Datetime, Reason: "no value parses as a timestamp"}
	}

	return t.ReplaceColumn(out)
}
