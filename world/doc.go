// Package world implements the grid world: an explicit action registry
// (movement, pickup, wait) and an in-memory store that serializes action
// application per world so concurrent deployments never produce lost updates.
package world
