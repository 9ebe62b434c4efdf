// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package runtime

import (
	"crypto/sha256"
	"encoding/binary"
)

// MaxRecentBlockhashes is how many blockhashes a transaction may reference.
const MaxRecentBlockhashes = 150

// blockhashQueue tracks recent blockhashes and the signatures processed
// under each, so a signed transaction can be applied at most once.
// Callers hold the bank mutex.
type blockhashQueue struct {
	slot      uint64
	hashes    []Hash
	processed map[Hash]map[Signature]struct{}
}

func newBlockhashQueue() *blockhashQueue {
	genesis := Hash(sha256.Sum256([]byte("apvault genesis")))
	return &blockhashQueue{
		hashes:    []Hash{genesis},
		processed: map[Hash]map[Signature]struct{}{genesis: {}},
	}
}

func (q *blockhashQueue) latest() Hash {
	return q.hashes[len(q.hashes)-1]
}

func (q *blockhashQueue) isRecent(h Hash) bool {
	_, ok := q.processed[h]
	return ok
}

// seen reports whether sig was already recorded under h.
func (q *blockhashQueue) seen(h Hash, sig Signature) bool {
	_, ok := q.processed[h][sig]
	return ok
}

func (q *blockhashQueue) record(h Hash, sig Signature) {
	if sigs, ok := q.processed[h]; ok {
		sigs[sig] = struct{}{}
	}
}

func (q *blockhashQueue) forget(h Hash, sig Signature) {
	if sigs, ok := q.processed[h]; ok {
		delete(sigs, sig)
	}
}

// advance produces the next slot's blockhash and expires the oldest one
// together with its signatures.
func (q *blockhashQueue) advance() Hash {
	q.slot++
	var buf [40]byte
	prev := q.latest()
	copy(buf[:32], prev[:])
	binary.LittleEndian.PutUint64(buf[32:], q.slot)
	next := Hash(sha256.Sum256(buf[:]))

	q.hashes = append(q.hashes, next)
	q.processed[next] = make(map[Signature]struct{})
	if len(q.hashes) > MaxRecentBlockhashes {
		expired := q.hashes[0]
		q.hashes = q.hashes[1:]
		delete(q.processed, expired)
	}
	return next
}
