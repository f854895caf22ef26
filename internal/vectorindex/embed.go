// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package vectorindex embeds device-descriptor text into fixed-dimension
// vectors and serves cosine-similarity search over them, with a binary
// on-disk format that reloads bit-identically. Grounded on the Python
// reference implementation's embedding_service: canonical text summary of
// a device (identity, parameters, errors, troubleshooting, a bounded
// raw-text prefix) goes in, a fixed-dimension vector comes out. The
// reference model is a trained sentence-transformer; this gateway
// replaces it with a deterministic hashed-trigram bag-of-characters
// embedder so embedding never touches the network or a model file and
// always produces the same vector for the same text.
package vectorindex

import (
	"hash/fnv"
	"math"
	"strings"
)

// Dimension is the fixed vector width every embedding produces.
const Dimension = 128

// Embed converts text into an L2-normalized D-dimensional vector by
// hashing overlapping character trigrams into buckets and counting them,
// the same shape as a hashed bag-of-n-grams feature vector.
func Embed(text string) []float64 {
	vec := make([]float64, Dimension)
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))

	for _, tri := range trigrams(normalized) {
		h := fnv.New32a()
		h.Write([]byte(tri))
		bucket := int(h.Sum32() % uint32(Dimension))
		vec[bucket]++
	}

	return l2Normalize(vec)
}

func trigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 3 {
		if len(runes) == 0 {
			return nil
		}
		return []string{string(runes)}
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}

func l2Normalize(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between a and b,
// assuming both are already L2-normalized (as every vector stored by this
// package is): their dot product.
func CosineSimilarity(a, b []float64) float64 {
	sum := 0.0
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
