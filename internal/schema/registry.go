package schema

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Errors for registry operations.
var (
	// ErrLoad indicates a malformed schema source. Fatal at startup, not
	// recoverable per-request.
	ErrLoad = errors.New("schema load failed")

	// ErrNotFound indicates an unknown program id.
	ErrNotFound = errors.New("program schema not found")
)

// fieldNamePattern validates field names. Lowercase identifier style so
// names survive as JSON keys, koanf paths, and audit records unchanged.
var fieldNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// programIDPattern validates program ids.
var programIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Source loads program schemas from a backing store. Implementations:
// FileSource (JSON document) and CatalogSource (SQLite catalog).
type Source interface {
	Load(ctx context.Context) ([]*ProgramSchema, error)
}

// Registry holds the loaded schema set. Reads never block each other;
// Reload builds and validates a fresh snapshot before swapping it in,
// so a failed reload leaves the previous snapshot serving.
type Registry struct {
	mu       sync.RWMutex
	source   Source
	logger   *zap.Logger
	schemas  map[string]*ProgramSchema
	loadedAt time.Time
}

// NewRegistry creates an empty registry over the given source. Call
// Load before serving requests.
func NewRegistry(source Source, logger *zap.Logger) (*Registry, error) {
	if source == nil {
		return nil, errors.New("schema source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		source:  source,
		logger:  logger,
		schemas: make(map[string]*ProgramSchema),
	}, nil
}

// Load populates the registry from its source. Any malformed schema
// fails the whole load with ErrLoad.
func (r *Registry) Load(ctx context.Context) error {
	return r.Reload(ctx)
}

// Reload fetches the source again and atomically swaps the snapshot.
// On failure the registry keeps serving the previous snapshot.
func (r *Registry) Reload(ctx context.Context) error {
	schemas, err := r.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}

	next := make(map[string]*ProgramSchema, len(schemas))
	for _, s := range schemas {
		if err := ValidateSchema(s); err != nil {
			return fmt.Errorf("%w: %v", ErrLoad, err)
		}
		if _, dup := next[s.ID]; dup {
			return fmt.Errorf("%w: duplicate program id %q", ErrLoad, s.ID)
		}
		next[s.ID] = s
	}

	r.mu.Lock()
	r.schemas = next
	r.loadedAt = time.Now().UTC()
	r.mu.Unlock()

	r.logger.Info("schema registry loaded", zap.Int("programs", len(next)))
	return nil
}

// Get returns the schema for a program id.
func (r *Registry) Get(programID string) (*ProgramSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[programID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, programID)
	}
	return s, nil
}

// Programs returns all loaded schemas ordered by program id.
func (r *Registry) Programs() []*ProgramSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ProgramSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of loaded programs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// LoadedAt returns when the current snapshot was installed.
func (r *Registry) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

// ValidateSchema checks one program schema for structural defects:
// missing metadata, duplicate or malformed field names, unknown field
// types, enums without options, patterns that do not compile, and rules
// referencing undeclared fields.
func ValidateSchema(s *ProgramSchema) error {
	if s == nil {
		return errors.New("nil schema")
	}
	if s.ID == "" {
		return errors.New("program id is required")
	}
	if !programIDPattern.MatchString(s.ID) {
		return fmt.Errorf("program %q: invalid program id", s.ID)
	}
	if len(s.Names) == 0 {
		return fmt.Errorf("program %q: at least one name is required", s.ID)
	}

	seen := make(map[string]bool, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("program %q: field %d has no name", s.ID, i)
		}
		if !fieldNamePattern.MatchString(f.Name) {
			return fmt.Errorf("program %q: invalid field name %q", s.ID, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("program %q: duplicate field name %q", s.ID, f.Name)
		}
		seen[f.Name] = true

		if !knownFieldTypes[f.Type] {
			return fmt.Errorf("program %q: field %q has unknown type %q", s.ID, f.Name, f.Type)
		}
		if f.Type == FieldTypeEnum && len(f.Options) == 0 {
			return fmt.Errorf("program %q: enum field %q has no options", s.ID, f.Name)
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				return fmt.Errorf("program %q: field %q pattern: %v", s.ID, f.Name, err)
			}
		}
	}

	for i, rule := range s.Rules {
		if !knownRuleKinds[rule.Kind] {
			return fmt.Errorf("program %q: rule %d has unknown kind %q", s.ID, i, rule.Kind)
		}
		if rule.Kind == RuleRequireOneOf {
			if len(rule.Fields) < 2 {
				return fmt.Errorf("program %q: require_one_of needs at least two fields", s.ID)
			}
			for _, name := range rule.Fields {
				if !seen[name] {
					return fmt.Errorf("program %q: rule references undeclared field %q", s.ID, name)
				}
			}
		}
	}

	return nil
}
