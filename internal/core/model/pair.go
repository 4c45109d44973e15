package model

// CandidatePair is an unordered pair of record keys emitted by a blocking
// strategy. Pairs are canonicalized at construction so (a,b) and (b,a)
// compare and deduplicate identically.
type CandidatePair struct {
	Key1     string `json:"key1"`
	Key2     string `json:"key2"`
	Strategy string `json:"strategy"`
	BlockKey string `json:"block_key,omitempty"`
}

// NewCandidatePair canonicalizes the key order.
func NewCandidatePair(a, b, strategy, blockKey string) CandidatePair {
	if b < a {
		a, b = b, a
	}
	return CandidatePair{Key1: a, Key2: b, Strategy: strategy, BlockKey: blockKey}
}

// ID is the canonical identity of the unordered pair, independent of the
// strategy that produced it.
func (p CandidatePair) ID() string {
	return p.Key1 + "|" + p.Key2
}

// PairSet accumulates candidate pairs with unordered-pair deduplication.
type PairSet struct {
	seen  map[string]struct{}
	pairs []CandidatePair
}

func NewPairSet() *PairSet {
	return &PairSet{seen: make(map[string]struct{})}
}

// Add inserts the pair unless its unordered identity was already present or
// the two keys are equal. Reports whether the pair was added.
func (s *PairSet) Add(p CandidatePair) bool {
	if p.Key1 == p.Key2 {
		return false
	}
	id := p.ID()
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = struct{}{}
	s.pairs = append(s.pairs, p)
	return true
}

func (s *PairSet) Contains(a, b string) bool {
	_, ok := s.seen[NewCandidatePair(a, b, "", "").ID()]
	return ok
}

func (s *PairSet) Len() int { return len(s.pairs) }

// Pairs returns the accumulated pairs in insertion order.
func (s *PairSet) Pairs() []CandidatePair { return s.pairs }
