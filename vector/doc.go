// Package vector implements the fixed-layout binary format used to store
// numeric vectors as opaque blobs, plus the record storage those blobs live
// in. It includes:
//   - Vector and ElementType: homogeneous float32/float64/int32/int64 vectors
//   - Serialize/Deserialize/PeekHeader: the 16-byte header blob codec
//   - Distance metrics over decoded vectors
//   - Key, Digest, Record and the Store interface
//   - SQLiteStore: durable record storage with a records table
package vector
