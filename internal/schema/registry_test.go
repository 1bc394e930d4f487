package schema

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	mu      sync.Mutex
	schemas []*ProgramSchema
	err     error
}

func (s *stubSource) Load(ctx context.Context) ([]*ProgramSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schemas, s.err
}

func (s *stubSource) set(schemas []*ProgramSchema, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas = schemas
	s.err = err
}

func testProgram(id string) *ProgramSchema {
	return &ProgramSchema{
		ID:       id,
		Names:    map[string]string{LanguageEN: "Test Program", LanguageFR: "Programme test"},
		Channels: []string{"online", "phone", "mail"},
		Fields: []FieldSpec{
			{
				Name:     "client_name",
				Type:     FieldTypeText,
				Required: true,
				Prompts:  map[string]string{LanguageEN: "What is your full name?"},
			},
			{
				Name:    "contact_email",
				Type:    FieldTypeEmail,
				Prompts: map[string]string{LanguageEN: "What email should we use?"},
			},
		},
		Rules: []BusinessRule{
			{Kind: RuleSupportedChannel},
			{Kind: RuleSupportedLanguage},
		},
	}
}

func TestNewRegistry_RequiresSource(t *testing.T) {
	_, err := NewRegistry(nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source is required")
}

func TestRegistry_LoadAndGet(t *testing.T) {
	src := &stubSource{schemas: []*ProgramSchema{testProgram("wage-subsidy"), testProgram("disability-benefit")}}
	reg, err := NewRegistry(src, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, reg.Load(context.Background()))
	assert.Equal(t, 2, reg.Len())
	assert.False(t, reg.LoadedAt().IsZero())

	got, err := reg.Get("wage-subsidy")
	require.NoError(t, err)
	assert.Equal(t, "wage-subsidy", got.ID)

	_, err = reg.Get("no-such-program")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_ProgramsSortedByID(t *testing.T) {
	src := &stubSource{schemas: []*ProgramSchema{
		testProgram("zeta"), testProgram("alpha"), testProgram("mid"),
	}}
	reg, err := NewRegistry(src, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, reg.Load(context.Background()))

	programs := reg.Programs()
	require.Len(t, programs, 3)
	assert.Equal(t, "alpha", programs[0].ID)
	assert.Equal(t, "mid", programs[1].ID)
	assert.Equal(t, "zeta", programs[2].ID)
}

func TestRegistry_LoadSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("catalog unreachable")}
	reg, err := NewRegistry(src, zap.NewNop())
	require.NoError(t, err)

	err = reg.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
}

func TestRegistry_LoadDuplicateProgramID(t *testing.T) {
	src := &stubSource{schemas: []*ProgramSchema{testProgram("dup"), testProgram("dup")}}
	reg, err := NewRegistry(src, zap.NewNop())
	require.NoError(t, err)

	err = reg.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.Contains(t, err.Error(), "duplicate program id")
}

func TestRegistry_FailedReloadKeepsSnapshot(t *testing.T) {
	src := &stubSource{schemas: []*ProgramSchema{testProgram("stable")}}
	reg, err := NewRegistry(src, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, reg.Load(context.Background()))

	src.set(nil, errors.New("source went away"))
	err = reg.Reload(context.Background())
	require.Error(t, err)

	// Previous snapshot still serves.
	got, err := reg.Get("stable")
	require.NoError(t, err)
	assert.Equal(t, "stable", got.ID)
}

func TestRegistry_ReloadSwapsSnapshot(t *testing.T) {
	src := &stubSource{schemas: []*ProgramSchema{testProgram("old")}}
	reg, err := NewRegistry(src, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, reg.Load(context.Background()))

	src.set([]*ProgramSchema{testProgram("new-one"), testProgram("new-two")}, nil)
	require.NoError(t, reg.Reload(context.Background()))

	assert.Equal(t, 2, reg.Len())
	_, err = reg.Get("old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	src := &stubSource{schemas: []*ProgramSchema{testProgram("concurrent")}}
	reg, err := NewRegistry(src, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, reg.Load(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = reg.Get("concurrent")
				_ = reg.Programs()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Reload(context.Background())
		}()
	}
	wg.Wait()

	got, err := reg.Get("concurrent")
	require.NoError(t, err)
	assert.Equal(t, "concurrent", got.ID)
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProgramSchema)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(s *ProgramSchema) {},
		},
		{
			name:    "missing id",
			mutate:  func(s *ProgramSchema) { s.ID = "" },
			wantErr: "program id is required",
		},
		{
			name:    "invalid id",
			mutate:  func(s *ProgramSchema) { s.ID = "../escape" },
			wantErr: "invalid program id",
		},
		{
			name:    "no names",
			mutate:  func(s *ProgramSchema) { s.Names = nil },
			wantErr: "at least one name is required",
		},
		{
			name:    "unnamed field",
			mutate:  func(s *ProgramSchema) { s.Fields[0].Name = "" },
			wantErr: "has no name",
		},
		{
			name:    "uppercase field name",
			mutate:  func(s *ProgramSchema) { s.Fields[0].Name = "ClientName" },
			wantErr: "invalid field name",
		},
		{
			name:    "duplicate field name",
			mutate:  func(s *ProgramSchema) { s.Fields[1].Name = s.Fields[0].Name },
			wantErr: "duplicate field name",
		},
		{
			name:    "unknown field type",
			mutate:  func(s *ProgramSchema) { s.Fields[0].Type = "telepathy" },
			wantErr: "unknown type",
		},
		{
			name: "enum without options",
			mutate: func(s *ProgramSchema) {
				s.Fields[0].Type = FieldTypeEnum
				s.Fields[0].Options = nil
			},
			wantErr: "has no options",
		},
		{
			name:    "bad pattern",
			mutate:  func(s *ProgramSchema) { s.Fields[0].Pattern = "([unclosed" },
			wantErr: "pattern",
		},
		{
			name: "unknown rule kind",
			mutate: func(s *ProgramSchema) {
				s.Rules = append(s.Rules, BusinessRule{Kind: "always_reject"})
			},
			wantErr: "unknown kind",
		},
		{
			name: "one-of with single field",
			mutate: func(s *ProgramSchema) {
				s.Rules = append(s.Rules, BusinessRule{Kind: RuleRequireOneOf, Fields: []string{"client_name"}})
			},
			wantErr: "at least two fields",
		},
		{
			name: "one-of referencing undeclared field",
			mutate: func(s *ProgramSchema) {
				s.Rules = append(s.Rules, BusinessRule{
					Kind:   RuleRequireOneOf,
					Fields: []string{"client_name", "ghost_field"},
				})
			},
			wantErr: "undeclared field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testProgram("validate-me")
			tt.mutate(s)

			err := ValidateSchema(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
