package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// Field is one label/value line in a document header or footer.
type Field struct {
	Label string
	Value interface{}
}

// Document is the structured payload handed to the renderer.
type Document struct {
	Title   string
	Sheet   string
	Number  string
	Date    time.Time
	Header  []Field
	Columns []string
	Widths  []float64
	Rows    [][]interface{}
	Footer  []Field
}

// Renderer turns a Document into an artifact.
type Renderer interface {
	Render(doc Document) ([]byte, error)
}

// XLSX renders documents as single-sheet workbooks.
type XLSX struct{}

func NewXLSX() *XLSX { return &XLSX{} }

func (XLSX) Render(doc Document) ([]byte, error) {
	if len(doc.Columns) == 0 {
		return nil, fmt.Errorf("render %q: no columns", doc.Title)
	}
	for i, r := range doc.Rows {
		if len(r) > len(doc.Columns) {
			return nil, fmt.Errorf("render %q: row %d has %d cells for %d columns", doc.Title, i+1, len(r), len(doc.Columns))
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := doc.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, err
		}
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	labelStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	headStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	lastCol, _ := excelize.ColumnNumberToName(len(doc.Columns))
	row := 1

	// title across the table width
	f.SetCellValue(sheet, "A1", doc.Title)
	if len(doc.Columns) > 1 {
		f.MergeCell(sheet, "A1", lastCol+"1")
	}
	f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	row++

	header := doc.Header
	if doc.Number != "" {
		header = append([]Field{{Label: "Number", Value: doc.Number}}, header...)
	}
	if !doc.Date.IsZero() {
		header = append(header, Field{Label: "Date", Value: doc.Date.Format("02-01-2006")})
	}
	for _, fld := range header {
		writeField(f, sheet, row, fld, labelStyle)
		row++
	}
	row++

	for i, h := range doc.Columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, row)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headStyle)
	}
	row++

	for _, r := range doc.Rows {
		for i, v := range r {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
		row++
	}

	if len(doc.Footer) > 0 {
		row++
		for _, fld := range doc.Footer {
			writeField(f, sheet, row, fld, labelStyle)
			row++
		}
	}

	for i, w := range doc.Widths {
		if i >= len(doc.Columns) {
			break
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeField(f *excelize.File, sheet string, row int, fld Field, style int) {
	label := fmt.Sprintf("A%d", row)
	f.SetCellValue(sheet, label, fld.Label)
	f.SetCellStyle(sheet, label, label, style)
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), fld.Value)
}
