package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"mitcircs/internal"
)

// ReadTable loads a survey export from disk. The format is picked by extension.
// The raw file content is returned alongside the table.
func ReadTable(path, preferredSheet string) (internal.Table, []byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return internal.Table{}, nil, errors.Wrapf(err, "read %s", path)
	}
	table, err := ReadTableBytes(filepath.Base(path), content, preferredSheet)
	if err != nil {
		return internal.Table{}, nil, err
	}
	return table, content, nil
}

func ReadTableBytes(name string, content []byte, preferredSheet string) (internal.Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		rows, err = parseXLSX(content, preferredSheet)
	case ".csv":
		rows, err = parseCSV(content)
	case ".html", ".htm":
		rows, err = parseHTMLTable(content)
	case ".eml":
		return parseEmailExport(content, preferredSheet)
	default:
		return internal.Table{}, fmt.Errorf("unsupported input type: %s", name)
	}
	if err != nil {
		return internal.Table{}, errors.Wrapf(err, "parse %s", name)
	}
	if len(rows) == 0 {
		return internal.Table{}, fmt.Errorf("%s: no rows found", name)
	}
	return toTable(rows), nil
}

func toTable(rows [][]string) internal.Table {
	table := internal.Table{Columns: trimCells(rows[0])}
	for _, raw := range rows[1:] {
		if isBlankRow(raw) {
			continue
		}
		table.Rows = append(table.Rows, internal.Row(raw))
	}
	return table
}

func trimCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseXLSX(content []byte, preferredSheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if preferredSheet != "" && s == preferredSheet {
			sheet = s
			break
		}
	}
	return f.GetRows(sheet)
}

func parseCSV(content []byte) ([][]string, error) {
	decoded := transform.NewReader(bytes.NewReader(content), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	r := csv.NewReader(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func parseHTMLTable(content []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no <table> element")
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := []string{}
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, normalizeSpaces(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows, nil
}

// parseEmailExport reads the first spreadsheet attachment of a saved e-mail.
func parseEmailExport(raw []byte, preferredSheet string) (internal.Table, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.Table{}, errors.Wrap(err, "parse e-mail")
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".xlsx", ".csv":
			table, err := ReadTableBytes(filename, att.Content, preferredSheet)
			if err != nil {
				return internal.Table{}, errors.Wrapf(err, "attachment %s", filename)
			}
			return table, nil
		}
	}
	return internal.Table{}, fmt.Errorf("e-mail %q has no .xlsx or .csv attachment", env.GetHeader("Subject"))
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
