// Package diag defines the finding model shared by the loader, the graph
// queries and the CLI.
//
// # Purpose
//
//   - Provide deterministic data structures that capture structural findings
//     made while a papyrus section is decoded: truncated tables, size
//     accounting drift, broken inheritance, mismatched member counts.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     findings without coupling to storage or formatting.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity: info, warning or error, with text marshalling and Filter.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Section and Offset – the table being read and the byte offset within
//     the section, or NoOffset.
//   - Notes – optional secondary offsets/messages for additional context.
//
// # Emitting diagnostics
//
// Producers use a diag.Reporter to decouple emission from storage. The loader
// constructs a ReportBuilder via ReportError/ReportWarning/ReportInfo, chains
// InSection / WithNote and calls Emit. BagReporter aggregates into a Bag,
// which supports sorting, deduplication and counting by code.
//
// Keep the data model deterministic so the CLI can cache and compare
// findings across runs.
package diag
