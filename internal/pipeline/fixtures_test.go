package pipeline

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"mitcircs/internal"
)

var scalarColumns = []string{
	"RecordedDate", "Q1", "Q3", "Q4", "Q150", "Q160", "Q17", "Q19", "Q20", "Q21",
	"Q152", "Q153", "Q151", "Q2", "Q3", "Q1", "Q164_Name",
}

var scalarQuestions = []string{
	"Recorded Date",
	"Full name",
	"University email address",
	"Student ID number (as on your student card)",
	"Are you applying for a postgraduate dissertation or research project?",
	"How many assessments are you applying for?",
	"Name of your academic advisor",
	"Details of your circumstances",
	"Dates affected",
	"If this application is late, why?",
	"Have you spoken to your supervisor?",
	"Are you on a Tier 4 visa?",
	"Proposed new deadline",
	"Are you registered with the Disability Advisory and Support Service?",
	"Will you be submitting evidence with your application?",
	"Dissertation supervisor name",
	"Upload your evidence - Name",
}

var blockSuffixList = []string{"_1", "_2", "_3", "_4", "_Q37", "_Q165", "_1_TEXT", "_3_TEXT", "_Q163"}

var blockQuestions = []string{
	"Division", "Programme", "Year of study", "Unit and assessment", "Other assessment",
	"Is this a resubmission?", "Resubmission - first attempt date", "Resubmission - second attempt date",
	"Submission status",
}

// surveyColumns lays out the scalar questions followed by one group of
// columns per block key.
func surveyColumns(blocks ...string) ([]string, []string) {
	columns := append([]string{}, scalarColumns...)
	header := append([]string{}, scalarQuestions...)
	for _, key := range blocks {
		for i, suffix := range blockSuffixList {
			columns = append(columns, key+suffix)
			header = append(header, key+" - "+blockQuestions[i])
		}
	}
	return columns, header
}

// baseAnswers is a complete response. A repeated column name is addressed
// as "Q1#2" for its second occurrence.
func baseAnswers() map[string]string {
	return map[string]string{
		"RecordedDate": "2024-11-05 10:00:00",
		"Q1":           "Ada Lovelace",
		"Q3":           "ada@student.example.ac.uk",
		"Q4":           "10234567",
		"Q150":         "No",
		"Q160":         "1",
		"Q17":          "Dr Babbage",
		"Q19":          "Illness",
		"Q20":          "01/11/24 to 05/11/24",
		"Q21":          "",
		"Q152":         "",
		"Q153":         "No",
		"Q151":         "",
		"Q2":           "",
		"Q3#2":         "Yes",
		"Q1#2":         "",
		"Q164_Name":    "gp_letter.pdf",

		"3_1":    "Biology, Medicine and Health",
		"3_2":    "BSc Biology",
		"3_3":    "2",
		"3_4":    "BIOL21111: Lab report - 10/11/24",
		"3_Q165": "No",
		"3_Q163": "Not submitted yet",
	}
}

func with(base map[string]string, kv ...string) map[string]string {
	out := make(map[string]string, len(base)+len(kv)/2)
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func answerRow(columns []string, answers map[string]string) internal.Row {
	seen := map[string]int{}
	row := make(internal.Row, len(columns))
	for i, name := range columns {
		seen[name]++
		key := name
		if seen[name] > 1 {
			key = name + "#" + string(rune('0'+seen[name]))
		}
		row[i] = answers[key]
	}
	return row
}

func surveyTable(blocks []string, responses ...map[string]string) internal.Table {
	columns, header := surveyColumns(blocks...)
	table := internal.Table{Columns: columns, Rows: []internal.Row{header}}
	for _, r := range responses {
		table.Rows = append(table.Rows, answerRow(columns, r))
	}
	return table
}

func withoutColumn(table internal.Table, name string) internal.Table {
	out := internal.Table{}
	keep := []int{}
	for i, c := range table.Columns {
		if c == name {
			continue
		}
		keep = append(keep, i)
		out.Columns = append(out.Columns, c)
	}
	for _, row := range table.Rows {
		nr := make(internal.Row, 0, len(keep))
		for _, i := range keep {
			nr = append(nr, row.Cell(i))
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

func tableRows(table internal.Table) [][]string {
	rows := [][]string{table.Columns}
	for _, r := range table.Rows {
		rows = append(rows, []string(r))
	}
	return rows
}

func mkXLSX(sheet string, rows [][]string) []byte {
	f := excelize.NewFile()
	name := f.GetSheetName(0)
	if sheet != "" && sheet != name {
		_ = f.SetSheetName(name, sheet)
		name = sheet
	}
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(name, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func mkCSV(rows [][]string) []byte {
	var b strings.Builder
	for _, row := range rows {
		quoted := make([]string, len(row))
		for i, c := range row {
			quoted[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
		}
		b.WriteString(strings.Join(quoted, ","))
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}
