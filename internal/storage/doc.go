// Package storage persists the console session between runs.
//
// A Store holds a handful of string entries, today only the bearer token
// (KeyAccessToken) and the verified identity (KeyUser). Two engines exist:
//
//   - BadgerStore: durable, an embedded Badger database under the state dir,
//     opened per operation so concurrent cepip-cli processes can share it
//   - MemoryStore: process local, used by tests and state.engine: memory
//
// SealedStore wraps either engine and encrypts values at rest with a key
// kept in a separate 0600 file.
package storage
