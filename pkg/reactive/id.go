package reactive

// idCounter is the source of unique IDs for all reactive primitives.
var idCounter uint64

// nextID returns the next unique ID for a reactive primitive.
// The runtime is single-threaded, so a plain increment is enough.
func nextID() uint64 {
	idCounter++
	return idCounter
}
