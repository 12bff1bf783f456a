// Package bloom implements the fixed-size membership filter exchanged between
// the master site and its replicas.
//
// A filter never yields false negatives: once an item was inserted, Contains
// reports it. Items that were never inserted may be reported as present with
// a probability governed by the load factor n/m and the probe count k (see
// FalsePositiveRate).
//
// Bit p of the filter lives in byte p/8 at mask 1<<(p%8). The JSON snapshot
// form is
//
//	{"bitArray":[0,128,...],"size":1024,"hashCount":3}
//
// and must stay stable for existing peers.
//
// Filters are not safe for concurrent mutation. Concurrent reads (Contains,
// Serialize, EstimateCount) are safe as long as no Insert or Merge runs.
package bloom
