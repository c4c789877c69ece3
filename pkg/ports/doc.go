/*
Package ports defines the driven ports (interfaces) of the intake core.

These interfaces decouple the conversation logic from external
implementations, allowing it to work with various storage backends, chat
transports and lock managers.

# Key Interfaces

  - Store: Persists users and the append-only answer log.
  - Renderer: Sends and edits messages on a chat transport.
  - DistributedLocker: Serializes turns of one user across replicas.
*/
package ports
