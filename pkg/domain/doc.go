// Package domain contains the core types of the intake dialogue engine:
// the conversation graph (nodes and guarded transitions), session state,
// the step log, reasoning results, and controller contracts.
//
// Types here are plain data. Behavior lives in the router, the reasoning
// engine and the turn orchestrator; adapters serialize these types as-is.
package domain
