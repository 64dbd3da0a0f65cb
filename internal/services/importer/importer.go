// Package importer turns an uploaded CSV file into candidate records: parse,
// suggest a column mapping from the header names, then validate and convert
// row by row. Bad rows become warnings, never a failed import, unless no row
// survives.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"hireflow/internal/domain"
)

var ErrTooFewRows = errors.New("file must contain a header row and at least one data row")

// PreviewRows is how many data rows a preview shows.
const PreviewRows = 3

type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Preview returns the first PreviewRows data rows.
func (t Table) Preview() [][]string {
	if len(t.Rows) <= PreviewRows {
		return t.Rows
	}
	return t.Rows[:PreviewRows]
}

func cleanCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// Parse reads comma separated text. Blank lines are dropped, cells are
// trimmed and stripped of double quotes, and rows may be ragged.
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("parse csv: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		for i := range rec {
			rec[i] = cleanCell(rec[i])
		}
		records = append(records, rec)
	}
	if len(records) < 2 {
		return Table{}, ErrTooFewRows
	}
	return Table{Headers: records[0], Rows: records[1:]}, nil
}

type Field string

const (
	FieldName      Field = "name"
	FieldEmail     Field = "email"
	FieldPhone     Field = "phone"
	FieldResumeURL Field = "resumeUrl"
	FieldStage     Field = "stage"
	FieldIgnore    Field = "ignore"
)

func (f Field) valid() bool {
	switch f {
	case FieldName, FieldEmail, FieldPhone, FieldResumeURL, FieldStage, FieldIgnore:
		return true
	}
	return false
}

type ColumnMapping struct {
	Column string `json:"csvColumn"`
	Field  Field  `json:"systemField"`
}

// Mapping assigns a field to each column, in column order.
type Mapping []ColumnMapping

// suggestions are checked in order; the first rule whose keyword occurs in the
// lowercased header wins.
var suggestions = []struct {
	field    Field
	keywords []string
}{
	{FieldName, []string{"name", "full", "candidate"}},
	{FieldEmail, []string{"email", "mail"}},
	{FieldPhone, []string{"phone", "mobile", "contact"}},
	{FieldResumeURL, []string{"resume", "cv", "url"}},
	{FieldStage, []string{"stage", "status", "level"}},
}

func SuggestMapping(headers []string) Mapping {
	m := make(Mapping, len(headers))
	for i, h := range headers {
		m[i] = ColumnMapping{Column: h, Field: suggest(h)}
	}
	return m
}

func suggest(header string) Field {
	lower := strings.ToLower(header)
	for _, s := range suggestions {
		for _, kw := range s.keywords {
			if strings.Contains(lower, kw) {
				return s.field
			}
		}
	}
	return FieldIgnore
}

// Index returns the first column mapped to f, or -1.
func (m Mapping) Index(f Field) int {
	for i, c := range m {
		if c.Field == f {
			return i
		}
	}
	return -1
}

func (m Mapping) Validate() error {
	ve := &domain.ValidationError{}
	for _, c := range m {
		if !c.Field.valid() {
			ve.Problems = append(ve.Problems, fmt.Sprintf("column %q: unknown field %q", c.Column, c.Field))
		}
	}
	if m.Index(FieldName) < 0 {
		ve.Problems = append(ve.Problems, `please map a column to "Full Name"`)
	}
	if m.Index(FieldEmail) < 0 {
		ve.Problems = append(ve.Problems, `please map a column to "Email Address"`)
	}
	if len(ve.Problems) > 0 {
		return ve
	}
	return nil
}

// Record is one accepted row. Stage is a resolved stage id.
type Record struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	ResumeURL string `json:"resumeUrl,omitempty"`
	Stage     string `json:"stage"`
}

type Result struct {
	Records  []Record `json:"records"`
	Warnings []string `json:"warnings"`
}

// NoValidRowsError is returned by Convert when every row was skipped.
type NoValidRowsError struct {
	Reasons []string
}

const maxReportedReasons = 5

func (e *NoValidRowsError) Error() string {
	if len(e.Reasons) == 0 {
		return "No valid candidates found in the file. Please check the data and try again."
	}
	n := min(len(e.Reasons), maxReportedReasons)
	msg := "No valid candidates found. Issues found:\n" + strings.Join(e.Reasons[:n], "\n")
	if len(e.Reasons) > maxReportedReasons {
		msg += "\n...and more"
	}
	return msg
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Convert validates every row against the mapping and resolves stage names
// against the campaign. Row numbers in warnings count the header as row 1.
func Convert(t Table, m Mapping, c *domain.Campaign, policy domain.StagePolicy) (Result, error) {
	if err := m.Validate(); err != nil {
		return Result{}, err
	}
	first, ok := c.FirstStage()
	if !ok {
		return Result{}, errors.New("campaign has no stages")
	}
	nameIdx, emailIdx := m.Index(FieldName), m.Index(FieldEmail)
	phoneIdx, resumeIdx, stageIdx := m.Index(FieldPhone), m.Index(FieldResumeURL), m.Index(FieldStage)
	needed := max(nameIdx, emailIdx) + 1

	res := Result{Records: []Record{}, Warnings: []string{}}
	warn := func(row int, format string, args ...any) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: ", row)+fmt.Sprintf(format, args...))
	}
	for i, row := range t.Rows {
		rowNum := i + 2
		if len(row) < needed {
			warn(rowNum, "Insufficient columns (has %d, needs %d)", len(row), needed)
			continue
		}
		name, email := cell(row, nameIdx), cell(row, emailIdx)
		switch {
		case name == "":
			warn(rowNum, "Missing name")
			continue
		case email == "":
			warn(rowNum, "Missing email")
			continue
		case !domain.PlausibleEmail(email):
			warn(rowNum, "Invalid email format (%s)", email)
			continue
		}

		stage := first.ID
		if raw := cell(row, stageIdx); raw != "" {
			id, err := policy.Apply(c.ResolveStageName(raw))
			if err != nil {
				warn(rowNum, "Unknown stage (%s)", raw)
				continue
			}
			stage = id
		}
		res.Records = append(res.Records, Record{
			Name:      name,
			Email:     email,
			Phone:     cell(row, phoneIdx),
			ResumeURL: cell(row, resumeIdx),
			Stage:     stage,
		})
	}
	if len(res.Records) == 0 {
		return res, &NoValidRowsError{Reasons: res.Warnings}
	}
	return res, nil
}

// TemplateFilename is the suggested download name for Template.
const TemplateFilename = "candidate_upload_template.csv"

// Template is a sample upload file that maps cleanly with SuggestMapping.
func Template() string {
	return strings.Join([]string{
		"Full Name,Email,Phone,Resume URL,Stage",
		"John Doe,john.doe@example.com,+91 9876543210,https://example.com/resume.pdf,Sourced",
		"Jane Smith,jane.smith@example.com,+91 8765432109,,Screening",
	}, "\n")
}
