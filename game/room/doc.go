// Package room implements rooms, the lobby and matchmaking.
//
// A Room is an ordered set of clients with broadcast helpers. The Lobby is a
// Room named "LOBBY" that also owns the game rooms: it creates them during
// matchmaking, takes clients back when they leave one, and closes rooms that
// become empty.
//
// Membership changes flow upward through Observer. Game rooms are observed by
// their lobby; the lobby is observed by the server, which is told about every
// disconnect so it can release the connection.
//
// A client is a member of at most one room. Adding it to a room rebinds the
// client and evicts it from wherever it was before.
//
// Nothing in this package locks. Callers confine all rooms of a lobby to one
// goroutine.
package room
