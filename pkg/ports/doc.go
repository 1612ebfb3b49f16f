/*
Package ports defines the driven ports (interfaces) for the intake engine.

These interfaces decouple the turn orchestrator from external
implementations, allowing the engine to work with various storage backends,
text generators, and health-record systems.

# Key Interfaces

  - SessionStore: persists sessions, their accumulated context, and the
    append-only step log.
  - DistributedLocker: coordinates per-session access across replicas.
  - Generator: produces the natural-language response text for a turn.
  - RecordSink: receives high-severity red flags for the subject's record.
*/
package ports
