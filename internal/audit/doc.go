// Package audit keeps the per-session compliance trail: an append-only,
// hash-chained sequence of entries recording every question posed, every
// answer received, and every validation outcome.
//
// Each session owns an independent chain seeded from its session id. Append
// is the only mutation; Verify recomputes the chain end-to-end and surfaces
// any break as ErrChainBroken. A Publisher can mirror appended entries onto
// NATS for downstream compliance and observability consumers.
package audit
