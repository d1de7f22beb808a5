// Package models defines the core domain models for Slicetally.
//
// # Models
//
//   - Group: a shared session identified by a short human-typeable code
//   - Participant: one member of a group with a display name and a slice counter
//   - AuditEntry: one accepted counter change, kept in a bounded per-group trail
//   - State: every group, the unit that is persisted and reloaded on startup
//   - Projection: the sorted, client-facing view of a group pushed to subscribers
//
// Participants are self-identified (no user accounts). A participant ID is only
// meaningful inside its group even if a client reuses the same ID elsewhere.
//
// # Design Principles
//
//  1. Value types: models are copied out of the store, never shared by pointer
//  2. Avoid circular references: relationships use ID strings
//  3. JSON tags match the persisted document and the wire format
package models
