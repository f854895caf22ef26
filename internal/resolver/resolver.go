// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package resolver identifies which device descriptor matches an observed
// network endpoint: a coarse classifier narrows by protocol/port, then a
// semantic refinement step matches against the vector index, with a
// bounded fingerprint cache to avoid re-embedding repeat sightings.
// The cache is a map-backed, mutex-guarded component owned by each
// Resolver, bounded by evicting the oldest insertion first.
package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sync"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/mlmodel"
	"github.com/circutor-labs/protogateway/internal/vectorindex"
)

// coarseClassLabels names the 5 output classes of the device classifier,
// in the same order the fixed weights were laid out.
var coarseClassLabels = [5]string{"sensor", "actuator", "controller", "gateway", "meter"}

// Fingerprint is the observed evidence about an unknown device: its
// network endpoint plus whatever discovery-derived hints are available.
type Fingerprint struct {
	Protocol     string
	Port         int
	ResponseTime float64 // milliseconds
	VendorHint   string
	ModelHint    string
	DeviceHint   string
}

// Digest returns a stable key for the fingerprint, used both for
// resolver-level caching and test assertions.
func (f Fingerprint) Digest() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s", f.Protocol, f.Port, f.VendorHint, f.ModelHint, f.DeviceHint)
	return hex.EncodeToString(h.Sum(nil))
}

// portPriors lists well-known protocol ports. classify consults only
// whether a port is listed, not its label: a listed port raises the
// reported confidence in an ambiguous case, and the chosen class stays
// the classifier's own.
var portPriors = map[int]string{
	47808: "bacnet_device",
	502:   "modbus_device",
	80:    "rest_device",
	8000:  "rest_device",
	8080:  "rest_device",
}

// AcceptanceThreshold is the minimum cosine similarity a semantic match
// must clear to be reported, rather than unknown. The resolve query and
// every canonical text share the same field labels ("Manufacturer:",
// "Model:", ...), which alone give an unrelated descriptor a trigram
// similarity of about 0.6, so the bar sits above that.
const AcceptanceThreshold = 0.7

const defaultCacheCapacity = 256

// Resolver is the constructed, owned component that turns a Fingerprint
// into a DeviceDescriptor. There is no package-level registry.
type Resolver struct {
	mu          sync.Mutex
	classifier  *mlmodel.LinearClassifier
	index       *vectorindex.Index
	model       *descriptor.Model
	cache       map[string]*descriptor.DeviceDescriptor
	cacheOrder  []string
	cacheCap    int
	CacheHits   int64
	CacheMisses int64
}

// New builds a Resolver over model (the in-memory descriptor set) and
// index (the semantic index built from the same descriptors).
func New(model *descriptor.Model, index *vectorindex.Index) *Resolver {
	return &Resolver{
		classifier: mlmodel.NewDeviceClassifier(),
		index:      index,
		model:      model,
		cache:      make(map[string]*descriptor.DeviceDescriptor),
		cacheCap:   defaultCacheCapacity,
	}
}

// coarseFeatures turns a Fingerprint into the 16-feature vector the device
// classifier expects: port, response time, and one-hot protocol flags
// occupy the first few slots; the remainder stay zero until richer
// discovery signals are wired in.
func coarseFeatures(f Fingerprint) []float64 {
	feats := make([]float64, 16)
	feats[0] = float64(f.Port)
	feats[1] = f.ResponseTime
	switch f.Protocol {
	case "BACnet":
		feats[2] = 1
	case "Modbus":
		feats[3] = 1
	case "REST":
		feats[4] = 1
	}
	return feats
}

// classify runs the coarse classifier. When the top two classes are
// within 0.05 of each other and the port is listed in portPriors, it
// raises the returned confidence to at least 0.6; the returned class is
// the classifier's top class in every case.
func (r *Resolver) classify(f Fingerprint) (int, float64) {
	probs := r.classifier.Predict(coarseFeatures(f))
	best, bestP := 0, probs[0]
	secondP := 0.0
	for i, p := range probs {
		if p > bestP {
			secondP = bestP
			best, bestP = i, p
		} else if p > secondP {
			secondP = p
		}
	}
	if bestP-secondP < 0.05 {
		if _, ok := portPriors[f.Port]; ok {
			// The prior doesn't change the class index space (that's
			// device-type specific, beyond what the fixed classifier
			// knows); it only raises confidence in ambiguous cases where
			// the port is unambiguous evidence on its own.
			bestP = math.Max(bestP, 0.6)
		}
	}
	return best, bestP
}

// ClassifyConfidence runs only the coarse classification stage (port,
// protocol, response-time features) and returns its confidence, without
// the semantic-search refinement Resolve performs. Exposed for callers
// that just want a cheap "does this look like a real device" signal
// (the tool surface's classify_device) ahead of committing to the fuller
// resolve_descriptor lookup.
func (r *Resolver) ClassifyConfidence(f Fingerprint) float64 {
	_, confidence := r.classify(f)
	return confidence
}

// Resolve runs coarse classification followed by semantic refinement and
// returns the matched descriptor, or an error of kind
// common.KindUnknownDevice when no match clears AcceptanceThreshold.
func (r *Resolver) Resolve(f Fingerprint) (*descriptor.DeviceDescriptor, error) {
	digest := f.Digest()

	if cached, ok := r.cacheGet(digest); ok {
		return cached, nil
	}

	class, _ := r.classify(f)
	coarseLabel := ""
	if class >= 0 && class < len(coarseClassLabels) {
		coarseLabel = coarseClassLabels[class]
	}

	matches := r.index.SearchText(resolveQuery(coarseLabel, f), 1)
	if len(matches) == 0 || matches[0].Similarity < AcceptanceThreshold {
		return nil, common.NewUnknownDevice(fmt.Sprintf("no descriptor matched fingerprint within acceptance threshold (best=%v)", bestSimilarity(matches)))
	}

	desc, ok := r.model.ByDeviceID(matches[0].DeviceID)
	if !ok {
		return nil, common.NewUnknownDevice(fmt.Sprintf("matched device_id %q absent from descriptor model", matches[0].DeviceID))
	}

	r.cachePut(digest, desc)
	return desc, nil
}

func resolveQuery(coarseLabel string, f Fingerprint) string {
	return fmt.Sprintf("Device type: %s\nProtocol: %s\nManufacturer: %s\nModel: %s\nHint: %s",
		coarseLabel, f.Protocol, f.VendorHint, f.ModelHint, f.DeviceHint)
}

func bestSimilarity(matches []vectorindex.Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	return matches[0].Similarity
}

// Candidate is one ranked semantic-search result, tagged with whether it
// cleared AcceptanceThreshold.
type Candidate struct {
	DeviceID   string
	Similarity float64
	Accepted   bool
}

// DebugSearch runs the same coarse-classify-then-semantic-search pipeline
// Resolve does, but returns every one of the top topK candidates with
// their similarity and acceptance verdict instead of only the winner —
// rejected near-misses included. It never reads or writes the resolve
// cache; it exists for test and diagnostic visibility into why a
// fingerprint did or didn't resolve, not as a third stable operation.
func (r *Resolver) DebugSearch(f Fingerprint, topK int) []Candidate {
	class, _ := r.classify(f)
	coarseLabel := ""
	if class >= 0 && class < len(coarseClassLabels) {
		coarseLabel = coarseClassLabels[class]
	}

	matches := r.index.SearchText(resolveQuery(coarseLabel, f), topK)
	candidates := make([]Candidate, len(matches))
	for i, m := range matches {
		candidates[i] = Candidate{DeviceID: m.DeviceID, Similarity: m.Similarity, Accepted: m.Similarity >= AcceptanceThreshold}
	}
	return candidates
}

func (r *Resolver) cacheGet(digest string) (*descriptor.DeviceDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.cache[digest]
	if ok {
		r.CacheHits++
	} else {
		r.CacheMisses++
	}
	return d, ok
}

func (r *Resolver) cachePut(digest string, d *descriptor.DeviceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cache[digest]; !exists {
		if len(r.cacheOrder) >= r.cacheCap {
			oldest := r.cacheOrder[0]
			r.cacheOrder = r.cacheOrder[1:]
			delete(r.cache, oldest)
		}
		r.cacheOrder = append(r.cacheOrder, digest)
	}
	r.cache[digest] = d
}
