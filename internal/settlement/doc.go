// Package settlement closes settlements.
//
// A close validates the settlement, aggregates net balances from its expenses,
// simplifies them into transfers, checks conservation, and atomically commits
// the snapshot. Only one close per settlement can ever commit.
package settlement
