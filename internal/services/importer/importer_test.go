package importer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireflow/internal/domain"
)

func campaign(t *testing.T) *domain.Campaign {
	t.Helper()
	c, err := domain.NewCampaign(domain.CampaignForm{Title: "SRE", Department: "Ops", Location: "Berlin", Openings: 2}, "u1", time.Now())
	require.NoError(t, err)
	return c
}

func TestParse(t *testing.T) {
	in := "\"Full Name\", Email ,Phone\n\n  \nAda Lovelace,ada@example.com, \"+44 1\" \nBob,bob@example.com\n"
	table, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Full Name", "Email", "Phone"}, table.Headers)
	assert.Equal(t, [][]string{
		{"Ada Lovelace", "ada@example.com", "+44 1"},
		{"Bob", "bob@example.com"},
	}, table.Rows)
}

func TestParseTooFewRows(t *testing.T) {
	for _, in := range []string{"", "name,email\n", "\n\nname,email\n\n"} {
		_, err := Parse(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrTooFewRows, "%q", in)
	}
}

func TestPreview(t *testing.T) {
	table := Table{Rows: [][]string{{"1"}, {"2"}, {"3"}, {"4"}}}
	assert.Len(t, table.Preview(), PreviewRows)
	assert.Len(t, Table{Rows: [][]string{{"1"}}}.Preview(), 1)
}

func TestSuggestMapping(t *testing.T) {
	headers := []string{"Full Name", "E-Mail", "Mobile", "CV Link", "Status", "Source", "Candidate"}
	got := SuggestMapping(headers)
	want := []Field{FieldName, FieldEmail, FieldPhone, FieldResumeURL, FieldStage, FieldIgnore, FieldName}
	require.Len(t, got, len(want))
	for i, f := range want {
		assert.Equal(t, headers[i], got[i].Column)
		assert.Equal(t, f, got[i].Field, headers[i])
	}
	assert.Equal(t, 0, got.Index(FieldName))
	assert.Equal(t, -1, Mapping{}.Index(FieldEmail))
}

func TestMappingValidate(t *testing.T) {
	assert.NoError(t, Mapping{{Column: "n", Field: FieldName}, {Column: "e", Field: FieldEmail}}.Validate())

	err := Mapping{{Column: "n", Field: FieldName}}.Validate()
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 1)

	err = Mapping{{Column: "x", Field: "age"}}.Validate()
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)
}

func TestConvert(t *testing.T) {
	c := campaign(t)
	table := Table{
		Headers: []string{"Name", "Email", "Phone", "Stage"},
		Rows: [][]string{
			{"Ada", "ada@example.com", "+44", "interview"},
			{"", "nobody@example.com"},
			{"Bob", ""},
			{"Carl", "carl-at-example"},
			{"Dana"},
			{"Eve", "eve@example.com", "", "Offer Sent"},
			{"Finn", "finn@example.com"},
		},
	}
	res, err := Convert(table, SuggestMapping(table.Headers), c, domain.FallbackToFirst)
	require.NoError(t, err)

	assert.Equal(t, []Record{
		{Name: "Ada", Email: "ada@example.com", Phone: "+44", Stage: "interview"},
		{Name: "Eve", Email: "eve@example.com", Stage: "sourced"},
		{Name: "Finn", Email: "finn@example.com", Stage: "sourced"},
	}, res.Records)
	assert.Equal(t, []string{
		"Row 3: Missing name",
		"Row 4: Missing email",
		"Row 5: Invalid email format (carl-at-example)",
		"Row 6: Insufficient columns (has 1, needs 2)",
	}, res.Warnings)
}

func TestConvertStrictSkipsUnknownStage(t *testing.T) {
	c := campaign(t)
	table := Table{
		Headers: []string{"Name", "Email", "Stage"},
		Rows:    [][]string{{"Eve", "eve@example.com", "Offer Sent"}, {"Ada", "ada@example.com", "HIRED"}},
	}
	res, err := Convert(table, SuggestMapping(table.Headers), c, domain.Strict)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "hired", res.Records[0].Stage)
	assert.Equal(t, []string{"Row 2: Unknown stage (Offer Sent)"}, res.Warnings)
}

func TestConvertNoValidRows(t *testing.T) {
	c := campaign(t)
	table := Table{Headers: []string{"Name", "Email"}}
	for i := 0; i < 7; i++ {
		table.Rows = append(table.Rows, []string{"", "x@example.com"})
	}
	_, err := Convert(table, SuggestMapping(table.Headers), c, domain.FallbackToFirst)
	var nv *NoValidRowsError
	require.True(t, errors.As(err, &nv))
	assert.Len(t, nv.Reasons, 7)
	assert.Equal(t, 5, strings.Count(err.Error(), "Missing name"))
	assert.True(t, strings.HasSuffix(err.Error(), "...and more"))

	assert.Equal(t, "No valid candidates found in the file. Please check the data and try again.", (&NoValidRowsError{}).Error())
}

func TestTemplateRoundTrip(t *testing.T) {
	table, err := Parse(strings.NewReader(Template()))
	require.NoError(t, err)
	res, err := Convert(table, SuggestMapping(table.Headers), campaign(t), domain.Strict)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "screening", res.Records[1].Stage)
	assert.Equal(t, "https://example.com/resume.pdf", res.Records[0].ResumeURL)
}
