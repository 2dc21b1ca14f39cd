// Package capability resolves which MIME types each office integration can open.
//
// Every integration is bound to exactly one source kind in configuration:
//
//   - capability: nested fields of the host capabilities object
//   - state: a JSON document injected by the server into a named state slot
//   - catalog: the bundled static format catalog, default formats only
//   - none: never opens anything
//
// The Aggregator turns a Binding into a MimeSet. A missing source or malformed
// data yields an empty set plus a diagnostic error; one integration's failure
// never affects the others.
package capability
