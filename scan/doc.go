// Package scan runs a vector scan over a record store: it encodes one query
// vector, decodes every stored blob of the requested bin, measures the
// distance and reports each match to a callback.
package scan
