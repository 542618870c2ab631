// Package registry provides a thread-safe registry of named values, used to
// look up source, operator and sink factories by the names network
// definitions refer to.
//
// Keys are ordered, so Keys and Range are deterministic:
//
//	sources := registry.New[string, SourceFactory]()
//	sources.Register("range", newRange)
//	sources.Register("values", newValues)
//
//	factory, err := sources.Lookup("range")
//	if err != nil {
//	    return err // registry: "rnge" not found (known: range, values)
//	}
//
// Add refuses to replace an existing entry; Register overwrites.
//
// All Registry methods are safe for concurrent use. Range iterates over a
// snapshot, so fn may call Register or Delete.
package registry
