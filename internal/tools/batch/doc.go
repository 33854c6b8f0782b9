// Package batch provides helpers for tools that act on several IDs in one
// call.
//
// This package includes helpers for:
//   - Parsing parameters that accept a single ID, an array, or a JSON-encoded array
//   - Running a bounded number of items concurrently while keeping input order
//   - Formatting per-item results, including partial failures, as one JSON document
package batch
