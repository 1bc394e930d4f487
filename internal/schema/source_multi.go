package schema

import (
	"context"
	"fmt"
)

// MultiSource merges several sources into one program set. Earlier
// sources take precedence: a program id already supplied by an earlier
// source shadows the same id from a later one. The daemon layers the
// curated JSON document over the ETL catalog this way.
type MultiSource struct {
	sources []Source
}

// NewMultiSource creates a source over the given sources in precedence
// order.
func NewMultiSource(sources ...Source) (*MultiSource, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	for i, src := range sources {
		if src == nil {
			return nil, fmt.Errorf("source %d is nil", i)
		}
	}
	return &MultiSource{sources: sources}, nil
}

// Load loads every source in order and merges the results. A failure in
// any source fails the whole load.
func (s *MultiSource) Load(ctx context.Context) ([]*ProgramSchema, error) {
	taken := make(map[string]bool)
	var out []*ProgramSchema
	for _, src := range s.sources {
		schemas, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}

		// Ids become taken only after the whole source is read, so a
		// duplicate within one source still reaches the registry's
		// duplicate check instead of being silently shadowed.
		added := make([]string, 0, len(schemas))
		for _, ps := range schemas {
			if taken[ps.ID] {
				continue
			}
			out = append(out, ps)
			added = append(added, ps.ID)
		}
		for _, id := range added {
			taken[id] = true
		}
	}
	return out, nil
}
