// Package deploy implements the deployment streamer: it translates one agent
// runtime execution into an ordered, typed stream of client-visible events,
// applying world-affecting tool results to the world store and guaranteeing
// exactly one terminal-class event per stream.
package deploy
