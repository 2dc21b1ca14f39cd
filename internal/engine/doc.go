// Package engine runs the office switcher resolution pass.
//
// A pass resolves each configured integration's MIME types, registers one
// "office-switcher-<id>" action per integration that has any, registers the
// umbrella "office-switcher" action over them, and suppresses the legacy
// actions the integrations registered themselves.
//
// PASS PHASES:
//
// 1. Resolve: capability sources are read concurrently; failures are isolated
// per integration and become diagnostics.
// 2. Prefetch: icons for integrations with MIME types are fetched concurrently
// through a per-pass cache, at most once each.
// 3. Synthesize: actions are built and registered serially in configured order.
// The exec variant (native delegate or viewer fallback) is chosen here, once.
// 4. Umbrella: registered after its children, only if there are any. Its
// predicate evaluates the children lazily at call time.
// 5. Suppress: legacy ids are disabled through the registry.
//
// Nothing in a pass fails the pass. Every problem is a PassError recorded in
// the Report, stamped with a logical sequence number from Clock.
package engine
