// Package match holds the authoritative state of the single two-seat match the
// relay serves: seat bookkeeping, the turn pointer, reconnect grace windows and
// the match lifecycle.
//
// MatchSession is the owner of all of it. Every exported operation takes the
// session lock, mutates state, and hands the resulting frames to the Transport
// before releasing it, so frames leave in the order the state changed. The
// server never sees board contents; shots and replies are relayed opaquely and
// each client adjudicates its own board.
package match
