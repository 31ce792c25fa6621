// Package census reads raw ACS extracts: the census API's JSON table format,
// the variables metadata that decodes its column codes, and a directory of
// downloaded extracts. It converts raw tables into models.RawRow values for
// the standardization core.
package census

import (
	"encoding/json"
	"io"
	"slices"
	"strconv"

	"acspop/internal/population/models"
	dErrors "acspop/pkg/domain-errors"
)

// Geography columns of the census API response.
const (
	ColName   = "NAME"
	ColState  = "state"
	ColCounty = "county"
)

// RawTable is a census API response: a header row followed by records.
// Cells are kept as text; null cells are nil.
type RawTable struct {
	Header  []string
	Records [][]*string
}

// ParseTable decodes the census JSON array-of-arrays format.
func ParseTable(r io.Reader) (*RawTable, error) {
	var doc [][]any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeShape, "decode census table")
	}
	if len(doc) == 0 {
		return nil, dErrors.New(dErrors.CodeShape, "census table has no header row")
	}

	header := make([]string, len(doc[0]))
	for i, cell := range doc[0] {
		s, ok := cell.(string)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeShape, "header cell %d is not a string", i)
		}
		header[i] = s
	}

	records := make([][]*string, 0, len(doc)-1)
	for n, rec := range doc[1:] {
		if len(rec) != len(header) {
			return nil, dErrors.Newf(dErrors.CodeShape, "record %d has %d cells, header has %d", n+1, len(rec), len(header))
		}
		cells := make([]*string, len(rec))
		for i, cell := range rec {
			switch v := cell.(type) {
			case nil:
			case string:
				cells[i] = &v
			case float64:
				s := strconv.FormatFloat(v, 'f', -1, 64)
				cells[i] = &s
			default:
				return nil, dErrors.Newf(dErrors.CodeShape, "record %d cell %d has unsupported type %T", n+1, i, cell)
			}
		}
		records = append(records, cells)
	}
	return &RawTable{Header: header, Records: records}, nil
}

func (t *RawTable) column(name string) (int, error) {
	i := slices.Index(t.Header, name)
	if i < 0 {
		return -1, dErrors.Newf(dErrors.CodeShape, "census table is missing column %s", name)
	}
	return i, nil
}

// Field is a RawRow label a variable label part is decoded into.
type Field int

const (
	FieldHispanic Field = iota
	FieldRace
	FieldSex
	FieldAge
)

func (f Field) set(row *models.RawRow, v string) {
	switch f {
	case FieldHispanic:
		row.Hispanic = v
	case FieldRace:
		row.Race = v
	case FieldSex:
		row.Sex = v
	case FieldAge:
		row.Age = v
	}
}

// Standardize melts a wide census table into one RawRow per geography and
// variable. Each variable's label parts are assigned to fields in order.
//
// Every variable in vars must be a column of the table (ShapeError), and
// every count column of the table must be in vars (MappingError).
func Standardize(t *RawTable, vars VariableMap, level models.Level, fields ...Field) ([]models.RawRow, error) {
	nameIdx, err := t.column(ColName)
	if err != nil {
		return nil, err
	}
	stateIdx, err := t.column(ColState)
	if err != nil {
		return nil, err
	}
	countyIdx := -1
	if level == models.LevelCounty {
		if countyIdx, err = t.column(ColCounty); err != nil {
			return nil, err
		}
	}

	geoCols := map[int]bool{nameIdx: true, stateIdx: true, countyIdx: true}
	for i, col := range t.Header {
		if geoCols[i] {
			continue
		}
		if _, ok := vars[col]; !ok {
			return nil, dErrors.Newf(dErrors.CodeMapping, "census table column %s has no variable mapping", col)
		}
	}

	type variable struct {
		idx    int
		code   string
		labels []string
	}
	codes := make([]string, 0, len(vars))
	for code := range vars {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	columns := make([]variable, 0, len(codes))
	for _, code := range codes {
		idx, err := t.column(code)
		if err != nil {
			return nil, err
		}
		labels := vars[code]
		if len(labels) != len(fields) {
			return nil, dErrors.Newf(dErrors.CodeMapping, "variable %s has %d labels, expected %d", code, len(labels), len(fields))
		}
		columns = append(columns, variable{idx: idx, code: code, labels: labels})
	}

	rows := make([]models.RawRow, 0, len(t.Records)*len(columns))
	for n, rec := range t.Records {
		geo, err := geography(rec, nameIdx, stateIdx, countyIdx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeShape, "record "+strconv.Itoa(n+1))
		}
		for _, c := range columns {
			cell := rec[c.idx]
			if cell == nil {
				return nil, dErrors.Newf(dErrors.CodeShape, "record %d: %s is null", n+1, c.code)
			}
			pop, err := strconv.ParseInt(*cell, 10, 64)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeShape, "record "+strconv.Itoa(n+1)+": "+c.code+" is not an integer")
			}
			row := models.RawRow{Geo: geo, Population: pop}
			for i, f := range fields {
				f.set(&row, c.labels[i])
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func geography(rec []*string, nameIdx, stateIdx, countyIdx int) (models.Geography, error) {
	text := func(i int) string {
		if rec[i] == nil {
			return ""
		}
		return *rec[i]
	}
	geo := models.Geography{StateFIPS: text(stateIdx), Name: text(nameIdx)}
	if geo.StateFIPS == "" {
		return models.Geography{}, dErrors.New(dErrors.CodeShape, "state code is empty")
	}
	if countyIdx >= 0 {
		county := text(countyIdx)
		if county == "" {
			return models.Geography{}, dErrors.New(dErrors.CodeShape, "county code is empty")
		}
		geo.CountyFIPS = geo.StateFIPS + county
	}
	return geo, nil
}
