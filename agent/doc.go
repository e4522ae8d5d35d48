// Package agent contains the per-agent runtime that drives a single
// conversational turn.
//
// A Runtime owns three things:
//
//  1. An immutable Identity (name, model, temperature, system instructions)
//  2. A bounded conversation history (the most recent turns only)
//  3. The turn algorithm: call the model, run embedded tool commands through
//     the command parser, splice their outcomes into the reply, update history
//     and emit trace records
//
// System instructions are composed once with BuildInstructions and kept out
// of the history; they are prepended to every completion request.
//
// Trace emission is best-effort. Sink failures are logged by the trace
// Emitter and never change the result of a turn. Completion failures are
// returned as *TurnError after the failed trace record has been emitted.
package agent
