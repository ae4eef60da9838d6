// Package entity manages the domain tables of the console: empresas
// (ente), personas, parcelas and consorcistas, plus a generic manager for
// the auxiliary tables.
//
// A Manager lists, reads and edits rows through the backend client,
// computes the per-page statistics shown above each listing, and exports
// the whole table as CSV.
package entity
