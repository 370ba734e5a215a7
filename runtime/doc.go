// Package runtime hosts agent runtime adapters. Each provider (anthropic,
// openai) lives in its own subpackage implementing core.Runtime, isolating
// vendor SDK quirks behind one explicitly versioned adapter instead of
// patching the SDK globally. The Scripted runtime in this package replays a
// fixed turn sequence for tests and demos.
package runtime
