// Package domain defines the core models of the CEPIP console.
//
// Domain models are plain values without IO dependencies:
//
//   - Identity: the server-issued identity record of the logged-in user
//   - SessionState: authentication state of the console session
//   - Records: opaque table rows plus the paging and column metadata
//     the backend sends with them
//   - Errors: coded domain errors shared by every layer
package domain
