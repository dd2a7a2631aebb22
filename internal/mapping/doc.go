// Package mapping maintains the DMX channel map for OrcheStream.
//
// It owns three concerns:
//   - Device typing: which kind of Home Assistant entity sits behind a
//     mapping, and how many DMX channels that type consumes
//   - The mapping table: DMX channel spans assigned to entities, with a
//     reverse channel index, auto-assignment, and SQLite persistence
//   - Command translation: turning a DMX frame into an ordered list of
//     device commands via the table
//
// Invariants:
//   - A device appears at most once in the table
//   - A channel belongs to at most one device (primary or auxiliary)
//   - All channels are within 1..512
//
// Mutations that would break an invariant are rejected with an error;
// they are never silently resolved. The full table is persisted through
// the Store on every mutation and loaded once at construction.
package mapping
