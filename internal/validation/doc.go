// Package validation checks client submissions against program schemas.
//
// ValidateField is a pure check of one value against one spec;
// Validate runs the whole submission: declared fields in schema order,
// unrecognized fields in sorted order, business rules in declared
// order, so identical inputs always produce identical issue lists.
// Passing values are canonicalized (NFC, trim, case-folded enums,
// YYYY-MM-DD dates, bare-digit identifiers) into a Normalized
// submission holding only schema-declared fields.
//
// Issues are data, never errors: a finding carries a field, a kind
// (MISSING, INVALID_FORMAT, UNSUPPORTED_VALUE, BUSINESS_RULE_VIOLATION),
// a severity, and a human message. Error severity blocks completion;
// warning severity records a shortcoming without blocking.
package validation
