/*
Package session implements learner session management on top of a SessionRepository.

It serialises access to each user's record (per-user in-process locks plus an
optional distributed lock for multi-replica deployments) and hands the pipeline
an immutable SessionSnapshot captured once before a run.
*/
package session
