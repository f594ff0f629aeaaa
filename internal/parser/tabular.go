package parser

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"docchat/internal/models"
)

// extractCSV treats the first record as the header and returns one segment per data row.
func extractCSV(data []byte, _ string) ([]string, error) {
	text, err := decodeUTF8(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, parseError(models.FormatCSV, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return rowSegments(records[1:]), nil
}

// extractXLSX reads every sheet in workbook order. The first non-empty row of a
// sheet is its header. excelize is tried first; tealeg/xlsx reads some older
// workbooks excelize refuses.
func extractXLSX(data []byte, _ string) ([]string, error) {
	sheets, err := readSheetsExcelize(data)
	if err != nil {
		log.Debug().Err(err).Msg("excelize could not read workbook, retrying with tealeg/xlsx")
		var fallbackErr error
		sheets, fallbackErr = readSheetsTealeg(data)
		if fallbackErr != nil {
			return nil, parseError(models.FormatXLSX, err)
		}
	}

	var segments []string
	for _, rows := range sheets {
		headerSeen := false
		for _, row := range rows {
			line := joinCells(row)
			if line == "" {
				continue
			}
			if !headerSeen {
				headerSeen = true
				continue
			}
			segments = append(segments, line)
		}
	}
	return segments, nil
}

func readSheetsExcelize(data []byte) ([][][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets [][][]string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			log.Warn().Err(err).Str("sheet", name).Msg("Skipping unreadable sheet")
			continue
		}
		sheets = append(sheets, rows)
	}
	return sheets, nil
}

func readSheetsTealeg(data []byte) ([][][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, err
	}

	var sheets [][][]string
	for _, sheet := range f.Sheets {
		var rows [][]string
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				if cell == nil {
					cells = append(cells, "")
					continue
				}
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, rows)
	}
	return sheets, nil
}

func rowSegments(rows [][]string) []string {
	var segments []string
	for _, row := range rows {
		if line := joinCells(row); line != "" {
			segments = append(segments, line)
		}
	}
	return segments
}

// joinCells space-joins the non-empty cells of a row.
func joinCells(row []string) string {
	cells := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return strings.Join(cells, " ")
}
