// Package mapping resolves button events to target actions.
//
// A Mapping binds source coordinates (device, button, action, each
// optionally the wildcard "*") to a target (light, scene, gate, or
// notification) with a command and a typed parameter bag. The Registry
// caches all mappings in memory so resolution on the event hot path
// never queries SQLite; CRUD operations write through the Repository
// and keep the cache in sync.
//
// Match precedence is priority ascending, then exact fields before
// wildcards (device outweighing button outweighing action), then ID.
// Every match executes; precedence only orders the dispatch sequence.
package mapping
