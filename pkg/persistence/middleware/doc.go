/*
Package middleware wraps a ports.SessionRepository with storage concerns that
are independent of the backend.

  - NewEncryptionMiddleware seals each record with AES-256-GCM, with key rotation.
  - NewRedactionMiddleware masks personal data in the dialogue before it is stored.

Compose them with Chain; redaction must run before encryption:

	repo := middleware.Chain(store, redact, encrypt)
*/
package middleware
