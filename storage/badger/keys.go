package badger

// Key prefixes for different data types
const (
	collectionPrefix = "coll:"
	pointPrefix      = "colpt:"
)

// makeCollectionKey generates the key of a collection descriptor.
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

// makePointPrefix generates the key prefix shared by every point of a collection.
// Format: prefix + name + 0x00. The NUL terminator keeps "a" from matching "ab".
func makePointPrefix(collection string) []byte {
	buf := make([]byte, 0, len(pointPrefix)+len(collection)+1)
	buf = append(buf, pointPrefix...)
	buf = append(buf, collection...)
	return append(buf, 0)
}

// makePointKey generates the key for a point by collection and ID.
func makePointKey(collection, id string) []byte {
	return append(makePointPrefix(collection), id...)
}
