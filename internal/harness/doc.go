// Package harness runs office switcher resolution passes from YAML scenarios.
//
// A scenario describes the host a pass runs in (capabilities, state slots,
// actions already registered, icons), runs one pass against an in-memory
// registry, then replays selection and exec steps against the registered
// actions and evaluates assertions on the result.
//
// # Scenario Format
//
//	name: richdocuments_only
//	description: "Only Nextcloud Office reports capabilities"
//	pass_id: pass-richdocuments
//	config: config.yaml
//	capabilities:
//	  richdocuments:
//	    mimetypes: [application/vnd.oasis.opendocument.text]
//	state:
//	  - app: office_switcher
//	    key: thinkfree_supported_formats
//	    value: '[{"mime": "application/pdf"}]'
//	existing_actions: [thinkfreeEditorAction]
//	icons:
//	  richdocuments: "<svg/>"
//	query: {sort: name}
//	steps:
//	  - select: [{path: /a.odt, mime: application/vnd.oasis.opendocument.text}]
//	    expect_enabled: [office-switcher-richdocuments, office-switcher]
//	  - exec: office-switcher-richdocuments
//	    node: {path: /Documents/a.odt, fileid: 42, mime: application/vnd.oasis.opendocument.text}
//	    dir: /Documents
//	    expect_outcome: deferred
//	  - close: true
//	assertions:
//	  - type: registered
//	    actions: [office-switcher-richdocuments, office-switcher]
//	  - type: diagnostic
//	    integration: thinkfree
//	    code: SOURCE_UNAVAILABLE
//
// # Assertion Types
//
//   - registered: the pass registered exactly these actions, in order
//   - absent: none of these actions exist in the host
//   - suppressed: every listed action exists and is disabled
//   - diagnostic: the report holds a diagnostic with this code (and integration)
//   - journal: the pass reads back from the journal unchanged
//
// # Deterministic Testing
//
// Every scenario runs with a fixed pass id (testutil.FixedPassIDs), a fresh
// testutil.DeterministicClock for diagnostic numbering, and a fresh in-memory
// SQLite journal, so the same scenario always yields the same snapshot.
package harness
