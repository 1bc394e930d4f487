package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxDocumentSize caps schema document reads at 4MB.
const maxDocumentSize = 4 * 1024 * 1024

// metaSchemaURL anchors the compiled meta-schema resource.
const metaSchemaURL = "https://openintake.schemas.local/programs.schema.json"

// metaSchema validates the raw program document before it is decoded
// into typed specs. Catching shape errors here keeps ValidateSchema
// focused on semantic defects (duplicates, undeclared rule fields).
const metaSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "names", "fields"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "names": {
        "type": "object",
        "additionalProperties": {"type": "string"},
        "minProperties": 1
      },
      "department": {
        "type": "object",
        "additionalProperties": {"type": "string"}
      },
      "fiscal_year": {"type": "string"},
      "channels": {"type": "array", "items": {"type": "string"}},
      "requires_sin": {"type": "boolean"},
      "requires_cra": {"type": "boolean"},
      "fields": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name", "type"],
          "properties": {
            "name": {"type": "string", "minLength": 1},
            "type": {
              "enum": ["text", "email", "date", "enum", "sin", "cra_business_number"]
            },
            "required": {"type": "boolean"},
            "options": {"type": "array", "items": {"type": "string"}},
            "pattern": {"type": "string"},
            "labels": {"type": "object", "additionalProperties": {"type": "string"}},
            "prompts": {"type": "object", "additionalProperties": {"type": "string"}}
          }
        }
      },
      "rules": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["kind"],
          "properties": {
            "kind": {
              "enum": ["require_one_of", "supported_channel", "supported_language"]
            },
            "fields": {"type": "array", "items": {"type": "string"}}
          }
        }
      }
    }
  }
}`

// FileSource loads program schemas from a single JSON document.
type FileSource struct {
	path     string
	compiled *jsonschema.Schema
}

// NewFileSource creates a source over the given JSON document path.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("schema document path is required")
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(metaSchemaURL, strings.NewReader(metaSchema)); err != nil {
		return nil, fmt.Errorf("meta-schema load failed: %w", err)
	}
	compiled, err := c.Compile(metaSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("meta-schema compile failed: %w", err)
	}

	return &FileSource{path: path, compiled: compiled}, nil
}

// Load reads, validates, and decodes the document.
func (s *FileSource) Load(ctx context.Context) ([]*ProgramSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening schema document: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat schema document: %w", err)
	}
	if info.Size() > maxDocumentSize {
		return nil, fmt.Errorf("schema document too large: %d bytes (max %d)", info.Size(), maxDocumentSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("reading schema document: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema document: %w", err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema document validation failed: %w", err)
	}

	var schemas []*ProgramSchema
	if err := json.Unmarshal(data, &schemas); err != nil {
		return nil, fmt.Errorf("decoding schema document: %w", err)
	}

	for _, ps := range schemas {
		normalizeCatalogValues(ps)
	}
	return schemas, nil
}

// Path returns the document path (used by the reload watcher).
func (s *FileSource) Path() string {
	return s.path
}

// normalizeCatalogValues lowercases and de-blanks the channel set so
// SupportsChannel comparisons work on canonical values regardless of
// how the source spelled them.
func normalizeCatalogValues(s *ProgramSchema) {
	channels := make([]string, 0, len(s.Channels))
	for _, c := range s.Channels {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			channels = append(channels, c)
		}
	}
	s.Channels = channels
}
