package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openintake/intaked/internal/schema"
)

func TestValidateField_RequiredMissing(t *testing.T) {
	f := &schema.FieldSpec{
		Name:     "client_name",
		Type:     schema.FieldTypeText,
		Required: true,
		Prompts:  map[string]string{schema.LanguageEN: "What is your full name?"},
	}

	for _, raw := range []string{"", "   ", "\t\n"} {
		issue := ValidateField(f, raw)
		require.NotNil(t, issue)
		assert.Equal(t, IssueMissing, issue.Kind)
		assert.Equal(t, SeverityError, issue.Severity)
		assert.Equal(t, "client_name", issue.Field)
		assert.Equal(t, "What is your full name?", issue.Message)
	}
}

func TestValidateField_OptionalEmptyPasses(t *testing.T) {
	f := &schema.FieldSpec{Name: "contact_email", Type: schema.FieldTypeEmail}
	assert.Nil(t, ValidateField(f, ""))
	assert.Nil(t, ValidateField(f, "  "))
}

func TestValidateField_MissingMessageFallsBackToLabel(t *testing.T) {
	f := &schema.FieldSpec{
		Name:     "client_name",
		Type:     schema.FieldTypeText,
		Required: true,
		Labels:   map[string]string{schema.LanguageEN: "Full name"},
	}
	issue := ValidateField(f, "")
	require.NotNil(t, issue)
	assert.Equal(t, "Full name is required.", issue.Message)
}

func TestValidateField_Email(t *testing.T) {
	f := &schema.FieldSpec{Name: "contact_email", Type: schema.FieldTypeEmail}

	assert.Nil(t, ValidateField(f, "applicant@example.ca"))
	assert.Nil(t, ValidateField(f, "  Applicant@Example.CA  "))

	for _, raw := range []string{"not-an-email", "a@b", "a b@c.d", "@example.ca"} {
		issue := ValidateField(f, raw)
		require.NotNil(t, issue, "expected %q to fail", raw)
		assert.Equal(t, IssueInvalidFormat, issue.Kind)
	}
}

func TestValidateField_Date(t *testing.T) {
	f := &schema.FieldSpec{Name: "start_date", Type: schema.FieldTypeDate}

	for _, raw := range []string{"2023-04-01", "2023/04/01", "April 1, 2023", "Apr 1, 2023"} {
		assert.Nil(t, ValidateField(f, raw), "expected %q to pass", raw)
	}
	for _, raw := range []string{"01-04-2023", "next tuesday", "2023-13-40"} {
		issue := ValidateField(f, raw)
		require.NotNil(t, issue, "expected %q to fail", raw)
		assert.Equal(t, IssueInvalidFormat, issue.Kind)
		assert.Contains(t, issue.Message, "YYYY-MM-DD")
	}
}

func TestValidateField_Enum(t *testing.T) {
	f := &schema.FieldSpec{
		Name:    "business_size",
		Type:    schema.FieldTypeEnum,
		Options: []string{"small", "medium", "large"},
		Labels:  map[string]string{schema.LanguageEN: "Business size"},
	}

	assert.Nil(t, ValidateField(f, "small"))
	assert.Nil(t, ValidateField(f, "MEDIUM"))
	assert.Nil(t, ValidateField(f, " Large "))

	issue := ValidateField(f, "enormous")
	require.NotNil(t, issue)
	assert.Equal(t, IssueUnsupportedValue, issue.Kind)
	assert.Contains(t, issue.Message, "'enormous' is not a supported value")
	assert.Contains(t, issue.Message, "small, medium, large")
}

func TestValidateField_SIN(t *testing.T) {
	f := &schema.FieldSpec{Name: "sin", Type: schema.FieldTypeSIN}

	assert.Nil(t, ValidateField(f, "123456789"))
	assert.Nil(t, ValidateField(f, "046-454-286"))
	assert.Nil(t, ValidateField(f, "046 454 286"))

	for _, raw := range []string{"12345678", "1234567890", "12345678a", "123-456"} {
		issue := ValidateField(f, raw)
		require.NotNil(t, issue, "expected %q to fail", raw)
		assert.Equal(t, IssueInvalidFormat, issue.Kind)
		assert.Contains(t, issue.Message, "nine digits")
	}
}

func TestValidateField_CRABusinessNumber(t *testing.T) {
	f := &schema.FieldSpec{Name: "cra_business_number", Type: schema.FieldTypeCRABusinessNumber}

	assert.Nil(t, ValidateField(f, "123456789"))
	assert.Nil(t, ValidateField(f, "123456789RC0001"))
	assert.Nil(t, ValidateField(f, "123456789 rc0001"))
	assert.Nil(t, ValidateField(f, "123-456-789"))

	for _, raw := range []string{"12345678", "123456789RC01", "123456789XYZ", "RC0001"} {
		issue := ValidateField(f, raw)
		require.NotNil(t, issue, "expected %q to fail", raw)
		assert.Equal(t, IssueInvalidFormat, issue.Kind)
	}
}

func TestValidateField_Pattern(t *testing.T) {
	f := &schema.FieldSpec{
		Name:    "postal_code",
		Type:    schema.FieldTypeText,
		Pattern: `^[A-Za-z]\d[A-Za-z] ?\d[A-Za-z]\d$`,
		Labels:  map[string]string{schema.LanguageEN: "Postal code"},
	}

	assert.Nil(t, ValidateField(f, "K1A 0B1"))
	assert.Nil(t, ValidateField(f, "k1a0b1"))

	issue := ValidateField(f, "12345")
	require.NotNil(t, issue)
	assert.Equal(t, IssueInvalidFormat, issue.Kind)
	assert.Contains(t, issue.Message, "Postal code")
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		spec schema.FieldSpec
		raw  string
		want string
	}{
		{
			name: "text trims",
			spec: schema.FieldSpec{Type: schema.FieldTypeText},
			raw:  "  Marie Curie  ",
			want: "Marie Curie",
		},
		{
			name: "email lowercases",
			spec: schema.FieldSpec{Type: schema.FieldTypeEmail},
			raw:  "Applicant@Example.CA",
			want: "applicant@example.ca",
		},
		{
			name: "date canonicalizes",
			spec: schema.FieldSpec{Type: schema.FieldTypeDate},
			raw:  "April 1, 2023",
			want: "2023-04-01",
		},
		{
			name: "enum folds to declared spelling",
			spec: schema.FieldSpec{Type: schema.FieldTypeEnum, Options: []string{"small", "medium"}},
			raw:  "SMALL",
			want: "small",
		},
		{
			name: "sin strips separators",
			spec: schema.FieldSpec{Type: schema.FieldTypeSIN},
			raw:  "046-454-286",
			want: "046454286",
		},
		{
			name: "cra uppercases suffix",
			spec: schema.FieldSpec{Type: schema.FieldTypeCRABusinessNumber},
			raw:  "123456789 rc0001",
			want: "123456789RC0001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(&tt.spec, tt.raw))
		})
	}
}

func TestNormalizeValue_AppliesNFC(t *testing.T) {
	// e + combining acute composes to é.
	f := &schema.FieldSpec{Type: schema.FieldTypeText}
	assert.Equal(t, "Québec", NormalizeValue(f, "Québec"))
}

func TestNormalizeEnvelope(t *testing.T) {
	assert.Equal(t, "en", NormalizeLanguage(" EN "))
	assert.Equal(t, "email", NormalizeChannel(" Email "))
	assert.Equal(t, "", NormalizeChannel("   "))
}
