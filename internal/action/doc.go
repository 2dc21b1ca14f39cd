// Package action defines the file actions exchanged with the host file manager.
//
// An Action is constructed by the engine and then owned by the host registry.
// The host asks an action whether it is enabled for the current selection and
// executes it against a single node.
//
// # Exec Delegation
//
// How an action executes is decided once, when the action is built, and is
// represented by a Handler variant:
//
//   - NativeDelegate: forward to an action the integration already registered
//   - ViewerFallback: open the node in the generic in-app viewer
//   - Submenu: umbrella entry, asks the host to show its children
//
// # Suppression
//
// Actions are never removed from the host. Superseded actions are suppressed
// instead: Suppress flips a flag that Enabled consults before the predicate, so
// the predicate itself is never rewritten.
package action
