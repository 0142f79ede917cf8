// Package flows defines the five flow configurations the engine
// registers: document registration, external sharing, firm sharing,
// licensing, and data-co-op publishing. Each pairs a fact generator and
// an event sequence builder with milestones and result accumulation.
package flows

import (
	"math/rand/v2"
)

const hexDigits = "0123456789abcdef"

// hexToken returns n pseudo-random hex characters. Facts are synthetic;
// values vary per invocation but the key set never does.
func hexToken(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = hexDigits[rand.IntN(16)] //nolint:gosec // synthetic identifiers, non-crypto rand
	}
	return string(b)
}

// txHash returns a synthetic 32-byte transaction hash.
func txHash() string {
	return "0x" + hexToken(64)
}

// docHash returns a synthetic document content hash.
func docHash() string {
	return "0x" + hexToken(64)
}

// blockNumber returns a synthetic block height in a plausible range.
func blockNumber() int {
	return intBetween(18_000_000, 19_999_999)
}

// tokenSerial returns a synthetic token serial number.
func tokenSerial() int {
	return intBetween(100_000, 999_999)
}

// intBetween returns a pseudo-random int in [lo, hi].
func intBetween(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1) //nolint:gosec // synthetic values, non-crypto rand
}
