// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "math/big"

// Prime-sized hash tables: adapted directly from dalzilio-rudd/primes.go.
// Sizing unique/op-cache tables to a prime reduces clustering for the
// multiplicative hashes used throughout this package.

func hasFactor(src, n int) bool {
	return src != n && src%n == 0
}

func hasEasyFactors(src int) bool {
	return hasFactor(src, 3) || hasFactor(src, 5) || hasFactor(src, 7) || hasFactor(src, 11) || hasFactor(src, 13)
}

func primeGte(src int) int {
	if src < 2 {
		src = 2
	}
	if src%2 == 0 {
		src++
	}
	for {
		if hasEasyFactors(src) {
			src += 2
			continue
		}
		if big.NewInt(int64(src)).ProbablyPrime(0) {
			return src
		}
		src += 2
	}
}

func primeLte(src int) int {
	if src <= 2 {
		return 2
	}
	if src%2 == 0 {
		src--
	}
	for src > 2 {
		if hasEasyFactors(src) {
			src -= 2
			continue
		}
		if big.NewInt(int64(src)).ProbablyPrime(0) {
			return src
		}
		src -= 2
	}
	return 2
}
