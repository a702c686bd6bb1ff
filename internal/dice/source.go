package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
)

// Source is the single random stream a battle draws from. *rand.Rand
// satisfies it.
type Source interface {
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

// NewSource seeds a deterministic pseudo-random source.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// DeterministicSeed derives a stable seed for a labelled sub-stream of a root
// seed so that two battles built from the same inputs replay identically.
func DeterministicSeed(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Scripted replays fixed outcomes. Rolls are die faces (1-based) consumed by
// Intn; Draws are percentages in [0,100) consumed by Float64. An exhausted
// queue repeats its last value, an empty one yields the lowest outcome.
type Scripted struct {
	mu    sync.Mutex
	Rolls []int
	Draws []float64
	ri    int
	di    int
}

// NewScripted builds a scripted source from die faces.
func NewScripted(rolls ...int) *Scripted {
	return &Scripted{Rolls: rolls}
}

// WithDraws appends percentage draws and returns the receiver.
func (s *Scripted) WithDraws(draws ...float64) *Scripted {
	s.mu.Lock()
	s.Draws = append(s.Draws, draws...)
	s.mu.Unlock()
	return s
}

func (s *Scripted) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Rolls) == 0 {
		return 0
	}
	idx := s.ri
	if idx >= len(s.Rolls) {
		idx = len(s.Rolls) - 1
	} else {
		s.ri++
	}
	v := s.Rolls[idx] - 1
	if v < 0 {
		v = 0
	}
	if v >= n {
		v = n - 1
	}
	return v
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Draws) == 0 {
		return 0
	}
	idx := s.di
	if idx >= len(s.Draws) {
		idx = len(s.Draws) - 1
	} else {
		s.di++
	}
	v := s.Draws[idx] / 100
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return 0.9999999
	}
	return v
}
