// Package internal holds helpers shared between the chip8 packages.
package internal

import (
	"iter"
)

// IterSeq2Concat concatenates multiple key/value iterators into one.
func IterSeq2Concat[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for key, val := range seq {
				if !yield(key, val) {
					return
				}
			}
		}
	}
}
