// Package cache provides the in-memory, mutex-guarded stores shared by the
// refresh tasks and the HTTP handlers.
//
//   - Cache[T]: ordered collection replaced wholesale (FX rates)
//   - SecurityCatalog: symbol -> security metadata
//   - SymbolSet: symbols any client has asked to follow
//
// Every read that returns a collection returns a copy.
package cache
