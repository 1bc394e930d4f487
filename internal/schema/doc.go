// Package schema holds the program intake schemas: which fields a
// program collects, how each is typed, and which cross-field rules
// apply.
//
// Schemas come from two source kinds: a JSON document validated
// against an embedded meta-schema, and the ETL-owned SQLite catalog
// (programs + program_fields tables); MultiSource layers them with the
// document taking precedence. The Registry serves an immutable
// snapshot; Reload swaps it atomically and a Watcher can drive reloads
// from filesystem events. A load failure never disturbs the snapshot
// already serving.
package schema
