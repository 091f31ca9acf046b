// Package radix implements a routing table in the manner of the BSD
// radix tree: a PATRICIA trie over length-prefixed byte keys combined
// with netmasks, answering longest-prefix matches.
//
// Keys and masks carry their length in the first byte. The first Offset
// bits of every key are never compared, so callers can keep the length
// byte (and any other fixed header) in front of the address.
//
// Storage:
// -------
//
// Every route lives in a node Pair taken from the table's NodePool with
// AllocPair: a leaf and a branch. The branch is spliced into the tree
// when the route's key is new. Routes sharing a key form a duped-key
// chain ordered most specific mask first; only the chain head sits in
// the tree. Branches move between pairs on deletion, leaves never do,
// so a Pair stays a stable handle of its route until it is deleted.
//
// Masks:
// -----
//
// Netmasks are interned in a MaskTree, itself a radix tree, so equal
// masks compare by pointer. Branches carry annotations of the masks of
// routes below them, ordered by decreasing index of the first zero bit.
// Match descends to a leaf once and then backtracks through the
// annotations of the ancestors.
//
// The package does no locking.
package radix
