/*
Package session implements the per-conversation session store and message timeline.

A Store pairs the current session snapshot with its append-only timeline.
Advance is the only way to change the snapshot and Append the only way to grow
the timeline; both enforce the conversation invariants (answers only grow,
premium never reverts, message ids strictly increase).

The Manager maps session ids to stores and keeps a per-id generation counter,
so a reopened conversation never accepts results addressed to a previous one.
*/
package session
