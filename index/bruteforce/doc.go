// Package bruteforce provides a simple vector index that answers kNN queries
// by measuring the distance to every stored vector. Its binary form embeds
// each vector as a vector blob, so a persisted index is validated by the
// same codec that validates stored records.
package bruteforce
