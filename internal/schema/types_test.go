package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldSpec_PromptFallsBackToEnglish(t *testing.T) {
	f := FieldSpec{
		Name:    "business_size",
		Prompts: map[string]string{LanguageEN: "How large is the business?"},
	}

	assert.Equal(t, "How large is the business?", f.Prompt(LanguageFR))
	assert.Equal(t, "How large is the business?", f.Prompt(LanguageEN))
}

func TestFieldSpec_PromptPrefersRequestedLanguage(t *testing.T) {
	f := FieldSpec{
		Name: "business_size",
		Prompts: map[string]string{
			LanguageEN: "How large is the business?",
			LanguageFR: "Quelle est la taille de l'entreprise?",
		},
	}

	assert.Equal(t, "Quelle est la taille de l'entreprise?", f.Prompt(LanguageFR))
}

func TestFieldSpec_LabelFallsBackToName(t *testing.T) {
	f := FieldSpec{Name: "business_size"}
	assert.Equal(t, "business_size", f.Label(LanguageEN))

	f.Labels = map[string]string{LanguageEN: "Business size"}
	assert.Equal(t, "Business size", f.Label(LanguageFR))
}

func TestProgramSchema_Name(t *testing.T) {
	s := &ProgramSchema{
		ID:    "wage-subsidy",
		Names: map[string]string{LanguageEN: "Wage Subsidy"},
	}

	assert.Equal(t, "Wage Subsidy", s.Name(LanguageEN))
	assert.Equal(t, "Wage Subsidy", s.Name(LanguageFR))

	s.Names = nil
	assert.Equal(t, "wage-subsidy", s.Name(LanguageEN))
}

func TestProgramSchema_ServesLanguage(t *testing.T) {
	s := &ProgramSchema{
		ID:    "wage-subsidy",
		Names: map[string]string{LanguageEN: "Wage Subsidy", LanguageFR: ""},
	}

	assert.True(t, s.ServesLanguage(LanguageEN))
	assert.False(t, s.ServesLanguage(LanguageFR))
}

func TestProgramSchema_SupportsChannel(t *testing.T) {
	s := &ProgramSchema{Channels: []string{"online", "phone", "mail"}}

	assert.True(t, s.SupportsChannel("phone"))
	assert.False(t, s.SupportsChannel("fax"))
	assert.False(t, s.SupportsChannel(""))
}

func TestProgramSchema_Field(t *testing.T) {
	s := testProgram("lookup")

	f, ok := s.Field("contact_email")
	assert.True(t, ok)
	assert.Equal(t, FieldTypeEmail, f.Type)

	_, ok = s.Field("unknown")
	assert.False(t, ok)
}
