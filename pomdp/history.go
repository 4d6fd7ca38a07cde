package pomdp

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"
)

// Entry is one (action, observation) step of the real or simulated history.
type Entry struct {
	Action      int
	Observation int
}

// History is the append-only action/observation log. A non-negative memory
// size bounds the suffix that contributes to the belief fingerprint; -1
// keeps the whole history relevant.
type History struct {
	entries    []Entry
	memorySize int
	initial    int
}

func NewHistory(memorySize int) *History {
	return &History{memorySize: memorySize, initial: -1}
}

// SetInitial records the observation seen before any step was taken.
func (h *History) SetInitial(observation int) {
	h.initial = observation
}

func (h *History) Add(action, observation int) {
	h.entries = append(h.entries, Entry{Action: action, Observation: observation})
}

func (h *History) Size() int {
	return len(h.entries)
}

// Truncate drops entries beyond the first k.
func (h *History) Truncate(k int) {
	if k < 0 || k > len(h.entries) {
		panic(fmt.Sprintf("history truncate out of range: %d of %d", k, len(h.entries)))
	}
	h.entries = h.entries[:k]
}

func (h *History) Back() Entry {
	if len(h.entries) == 0 {
		panic("history is empty")
	}
	return h.entries[len(h.entries)-1]
}

// LastObservation returns the initial observation (-1 if none was set)
// before the first step.
func (h *History) LastObservation() int {
	if len(h.entries) == 0 {
		return h.initial
	}
	return h.entries[len(h.entries)-1].Observation
}

func (h *History) MemorySize() int {
	return h.memorySize
}

// BeliefHash fingerprints the retained suffix. Two histories with identical
// retained suffixes and memory bounds hash identically; the combine is
// order-sensitive.
func (h *History) BeliefHash() uint64 {
	hasher := fnv.New64a()
	binary.Write(hasher, binary.LittleEndian, int64(h.memorySize))

	start := 0
	if h.memorySize >= 0 && len(h.entries) > h.memorySize {
		start = len(h.entries) - h.memorySize
	}
	for _, e := range h.entries[start:] {
		binary.Write(hasher, binary.LittleEndian, int64(e.Action))
		binary.Write(hasher, binary.LittleEndian, int64(e.Observation))
	}
	return hasher.Sum64()
}

// CombineHash extends a fingerprint by one (action, observation) pair: an
// fnv64a hash of the seed followed by the pair. The result is not the
// BeliefHash of a history extended by that pair.
func CombineHash(seed uint64, action, observation int) uint64 {
	hasher := fnv.New64a()
	binary.Write(hasher, binary.LittleEndian, seed)
	binary.Write(hasher, binary.LittleEndian, int64(action))
	binary.Write(hasher, binary.LittleEndian, int64(observation))
	return hasher.Sum64()
}

func (h *History) String() string {
	var b strings.Builder
	for i, e := range h.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%d, %d)", e.Action, e.Observation)
	}
	return "[" + b.String() + "]"
}
