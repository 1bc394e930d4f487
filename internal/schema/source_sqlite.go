package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// CatalogSource loads program schemas from the ETL-owned SQLite catalog.
//
// The catalog carries one row per program and fiscal year in `programs`
// plus the adaptive question list in `program_fields`; when a program
// appears for several fiscal years the newest row wins. Identifier
// requirement columns hold survey-style truthy strings (y, yes, true,
// 1, oui), channels are comma-separated.
type CatalogSource struct {
	db *sql.DB
}

// OpenCatalog opens the catalog database at the given path.
func OpenCatalog(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return db, nil
}

// NewCatalogSource creates a source over an open catalog database.
func NewCatalogSource(db *sql.DB) (*CatalogSource, error) {
	if db == nil {
		return nil, fmt.Errorf("catalog database is required")
	}
	return &CatalogSource{db: db}, nil
}

// Load reads the catalog and assembles one schema per program.
func (s *CatalogSource) Load(ctx context.Context) ([]*ProgramSchema, error) {
	programs, order, err := s.loadPrograms(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.loadFields(ctx, programs); err != nil {
		return nil, err
	}

	out := make([]*ProgramSchema, 0, len(order))
	for _, id := range order {
		ps := programs[id]
		finishCatalogSchema(ps)
		out = append(out, ps)
	}
	return out, nil
}

func (s *CatalogSource) loadPrograms(ctx context.Context) (map[string]*ProgramSchema, []string, error) {
	query := `
        SELECT program_id, name_en, name_fr, department_en, department_fr,
               channels, use_of_sin, use_of_cra, fiscal_year
        FROM programs
        ORDER BY program_id, fiscal_year DESC
    `
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("querying programs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	programs := make(map[string]*ProgramSchema)
	var order []string
	for rows.Next() {
		var (
			id           string
			nameEN       sql.NullString
			nameFR       sql.NullString
			departmentEN sql.NullString
			departmentFR sql.NullString
			channels     sql.NullString
			useOfSIN     sql.NullString
			useOfCRA     sql.NullString
			fiscalYear   sql.NullString
		)
		if err := rows.Scan(&id, &nameEN, &nameFR, &departmentEN, &departmentFR,
			&channels, &useOfSIN, &useOfCRA, &fiscalYear); err != nil {
			return nil, nil, fmt.Errorf("scanning program row: %w", err)
		}

		// Newest fiscal year sorts first; later rows are older duplicates.
		if _, ok := programs[id]; ok {
			continue
		}

		ps := &ProgramSchema{
			ID:          id,
			Names:       languageMap(nameEN.String, nameFR.String),
			Department:  languageMap(departmentEN.String, departmentFR.String),
			FiscalYear:  fiscalYear.String,
			Channels:    splitList(channels.String),
			RequiresSIN: truthy(useOfSIN.String),
			RequiresCRA: truthy(useOfCRA.String),
		}
		programs[id] = ps
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading program rows: %w", err)
	}
	return programs, order, nil
}

func (s *CatalogSource) loadFields(ctx context.Context, programs map[string]*ProgramSchema) error {
	query := `
        SELECT program_id, name, type, required, options,
               label_en, label_fr, prompt_en, prompt_fr
        FROM program_fields
        ORDER BY program_id, position
    `
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying program fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			programID string
			name      string
			fieldType sql.NullString
			required  sql.NullString
			options   sql.NullString
			labelEN   sql.NullString
			labelFR   sql.NullString
			promptEN  sql.NullString
			promptFR  sql.NullString
		)
		if err := rows.Scan(&programID, &name, &fieldType, &required, &options,
			&labelEN, &labelFR, &promptEN, &promptFR); err != nil {
			return fmt.Errorf("scanning field row: %w", err)
		}

		ps, ok := programs[programID]
		if !ok {
			// Orphaned field rows happen when the ETL drops a program
			// but keeps its questions.
			continue
		}

		ft := FieldType(fieldType.String)
		if ft == "" {
			ft = FieldTypeText
		}
		f := FieldSpec{
			Name:     name,
			Type:     ft,
			Required: truthy(required.String),
			Options:  splitList(options.String),
			Labels:   languageMap(labelEN.String, labelFR.String),
			Prompts:  languageMap(promptEN.String, promptFR.String),
		}
		if len(f.Options) > 0 && f.Type == FieldTypeText {
			f.Type = FieldTypeEnum
		}
		ps.Fields = append(ps.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading field rows: %w", err)
	}
	return nil
}

// finishCatalogSchema prepends the standard contact block and the
// identifier fields the catalog flags demand, then appends the channel
// and language rules every catalog program carries.
func finishCatalogSchema(ps *ProgramSchema) {
	head := []FieldSpec{
		{
			Name:     "client_name",
			Type:     FieldTypeText,
			Required: true,
			Labels:   languageMap("Full name", "Nom complet"),
			Prompts:  languageMap("What is your full name?", "Quel est votre nom complet?"),
		},
		{
			Name:   "contact_email",
			Type:   FieldTypeEmail,
			Labels: languageMap("Contact email", "Courriel"),
			Prompts: languageMap(
				"What email address should we use to reach you?",
				"Quelle adresse courriel devons-nous utiliser pour vous joindre?"),
		},
	}
	if ps.RequiresSIN {
		head = append(head, FieldSpec{
			Name:     FieldSIN,
			Type:     FieldTypeSIN,
			Required: true,
			Labels:   languageMap("Social Insurance Number", "Numéro d'assurance sociale"),
			Prompts: languageMap(
				"What is your Social Insurance Number?",
				"Quel est votre numéro d'assurance sociale?"),
		})
	}
	if ps.RequiresCRA {
		head = append(head, FieldSpec{
			Name:     FieldCRABusinessNumber,
			Type:     FieldTypeCRABusinessNumber,
			Required: true,
			Labels:   languageMap("CRA business number", "Numéro d'entreprise de l'ARC"),
			Prompts: languageMap(
				"What is your CRA business number?",
				"Quel est votre numéro d'entreprise de l'ARC?"),
		})
	}
	ps.Fields = append(head, ps.Fields...)
	ps.Rules = append(ps.Rules,
		BusinessRule{Kind: RuleSupportedChannel},
		BusinessRule{Kind: RuleSupportedLanguage},
	)
}

// truthy interprets the catalog's survey-style flag values.
func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes", "true", "1", "oui":
		return true
	default:
		return false
	}
}

// splitList parses a comma-separated catalog value into canonical
// lowercase entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// languageMap builds a language map from en/fr values, omitting blanks.
func languageMap(en, fr string) map[string]string {
	m := make(map[string]string, 2)
	if en != "" {
		m[LanguageEN] = en
	}
	if fr != "" {
		m[LanguageFR] = fr
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
