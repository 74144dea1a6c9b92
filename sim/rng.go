package sim

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible sampling run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical occurrence tensors.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// RandomSimulationKey draws a key from the operating system's entropy pool.
// Used for unseeded runs; callers should log or persist the returned key so
// the run can be replayed.
func RandomSimulationKey() SimulationKey {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// crypto/rand.Read does not fail on supported platforms
		panic(fmt.Sprintf("reading entropy: %v", err))
	}
	return SimulationKey(int64(binary.LittleEndian.Uint64(buf[:])))
}

// Derive returns the seed of the named subsystem's stream.
//
// Derivation formula:
//   - For SubsystemOccurrence: uses the key directly, so a single-stream run
//     with --seed N draws from rand.NewSource(N)
//   - For all other subsystems: key XOR fnv1a64(subsystemName)
//
// Derive is a pure function and safe to call from any goroutine.
func (k SimulationKey) Derive(name string) int64 {
	if name == SubsystemOccurrence {
		return int64(k)
	}
	return int64(k) ^ fnv1a64(name)
}

// === Subsystem Constants ===

const (
	// SubsystemOccurrence is the single stream used by the flattened sampler.
	SubsystemOccurrence = "occurrence"
)

// SubsystemReplication returns the subsystem name for replication N.
// Used by the partitioned sampler for per-replication stream isolation.
func SubsystemReplication(id int) string {
	return fmt.Sprintf("replication_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
// Workers that need their own stream should call SimulationKey.Derive instead.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := newRandFromSeed(p.key.Derive(name))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// NewSource returns the single random stream for key, the source consumed by
// SampleOccurrences in flattened order.
func NewSource(key SimulationKey) *rand.Rand {
	return NewPartitionedRNG(key).ForSubsystem(SubsystemOccurrence)
}

func newRandFromSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
