// Package core defines the shared vocabulary of AICraft: the turn events
// produced by an agent runtime, the stream events delivered to clients, the
// grid world data model and the store interfaces consumed by the deployment
// streamer. Higher-level packages (deploy, world, tool, runtime adapters,
// httpapi) depend on core; core depends on nothing beyond the standard
// library and uuid.
package core
