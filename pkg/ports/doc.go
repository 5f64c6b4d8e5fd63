/*
Package ports defines the driven ports (interfaces) of the freelingo pipeline.

These interfaces decouple the agent chain from external implementations, allowing
the engine to run against any model provider and the session layer against any
storage backend.

# Key Interfaces

  - Evaluator: Answers the four stage prompts (feedback, plan, words, referee).
  - SessionRepository: Persists per-user session records (known words, dialogue history).
  - DistributedLocker: Provides distributed locking for concurrent session access.
*/
package ports
