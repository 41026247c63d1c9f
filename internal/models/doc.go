// Package models defines the core domain models for settlewise.
//
// # Lifecycle
//
// A Settlement is a bounded expense-sharing session. While it is open,
// participants and expenses can be added freely. Closing it computes every
// participant's net balance and a list of transfers that settle those
// balances, and freezes both into a Snapshot.
//
//   - Settlement: the session, with its status and participant list
//   - Participant: one person taking part in a settlement
//   - Expense: a payment made by one participant on behalf of some others
//   - Snapshot: the immutable result of closing a settlement
//   - User: a registered account that can own or join settlements
//
// # Money
//
// All amounts are int64 minor currency units (cents). Decimal strings only
// exist at the RPC boundary.
//
// # Design Principles
//
//  1. Relationships use ID strings instead of pointers
//  2. A closed settlement is read from its Snapshot, never recomputed
//  3. Status only moves from open to closed
package models
