// Package snowflake generates 64-bit time-sortable unique IDs without
// coordination: 41 bits of milliseconds since a custom epoch, 10 bits
// of node ID and a 12-bit per-millisecond sequence. Queue items and
// escalation records use these so chronological order matches numeric
// order.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	// epoch is 2024-01-01 00:00:00 UTC.
	epoch int64 = 1704067200000

	nodeIDBits   = 10
	sequenceBits = 12

	maxNodeID   = (1 << nodeIDBits) - 1
	maxSequence = (1 << sequenceBits) - 1

	timestampShift = nodeIDBits + sequenceBits
	nodeIDShift    = sequenceBits
)

var (
	ErrInvalidNodeID  = errors.New("node ID must be between 0 and 1023")
	ErrClockMovedBack = errors.New("clock moved backwards")
)

// Generator produces unique IDs for one node.
type Generator struct {
	mu       sync.Mutex
	nodeID   int64
	sequence int64
	lastTime int64
}

// NewGenerator creates a generator for the given node ID (0-1023).
func NewGenerator(nodeID int64) (*Generator, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, ErrInvalidNodeID
	}
	return &Generator{nodeID: nodeID}, nil
}

// Next returns the next unique ID.
func (g *Generator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.lastTime {
		return 0, ErrClockMovedBack
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// Sequence exhausted for this millisecond, spin to the next one.
			for now <= g.lastTime {
				time.Sleep(100 * time.Microsecond)
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	id := ((now - epoch) << timestampShift) |
		(g.nodeID << nodeIDShift) |
		g.sequence
	return id, nil
}

// MustNext returns the next ID and panics on error.
func (g *Generator) MustNext() int64 {
	id, err := g.Next()
	if err != nil {
		panic(err)
	}
	return id
}

// Timestamp extracts the creation time embedded in an ID.
func Timestamp(id int64) time.Time {
	return time.UnixMilli((id >> timestampShift) + epoch)
}

// =============================================================================
// Global Generator
// =============================================================================

var (
	globalGen  *Generator
	globalOnce sync.Once
	globalErr  error
)

// Init configures the global generator. Call once at startup before
// any ID call.
func Init(nodeID int64) error {
	globalOnce.Do(func() {
		globalGen, globalErr = NewGenerator(nodeID)
	})
	return globalErr
}

// ID returns a new ID from the global generator.
func ID() int64 {
	if globalGen == nil {
		panic("snowflake: global generator not initialized, call Init() first")
	}
	return globalGen.MustNext()
}
