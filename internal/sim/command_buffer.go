package sim

import "sync"

const (
	commandBufferOccupancyMetricKey = "sim_command_buffer_occupancy"
	commandBufferOverflowMetricKey  = "sim_command_buffer_overflow_total"
	commandStopCoalescedMetricKey   = "sim_command_stop_coalesced_total"
)

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// CommandBuffer holds intents between sequencer steps. Pacing intents are
// bounded by capacity; a stop is held outside the bound so a full buffer
// can never refuse it. Safe for concurrent producers and one consumer.
type CommandBuffer struct {
	mu       sync.Mutex
	capacity int
	pending  []Command
	stop     *Command
	metrics  telemetryMetrics
}

// NewCommandBuffer constructs a buffer holding up to capacity pacing intents.
func NewCommandBuffer(capacity int, metrics telemetryMetrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		capacity: capacity,
		pending:  make([]Command, 0, capacity),
		metrics:  metrics,
	}
}

// Push stages an intent. It returns false only when a non-stop intent
// finds the buffer full. Repeated stops collapse into the first one.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if cmd.Type == CommandStop {
		if b.stop != nil {
			b.add(commandStopCoalescedMetricKey)
			return true
		}
		staged := cmd
		b.stop = &staged
		b.storeOccupancyLocked()
		return true
	}

	if len(b.pending) == b.capacity {
		b.add(commandBufferOverflowMetricKey)
		return false
	}
	b.pending = append(b.pending, cmd)
	b.storeOccupancyLocked()
	return true
}

// Drain hands over the staged intents and empties the buffer. A pending
// stop comes first; the rest keep arrival order.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop == nil && len(b.pending) == 0 {
		return nil
	}

	drained := make([]Command, 0, len(b.pending)+1)
	if b.stop != nil {
		drained = append(drained, *b.stop)
		b.stop = nil
	}
	drained = append(drained, b.pending...)
	b.pending = b.pending[:0]
	b.storeOccupancyLocked()
	return drained
}

// Len reports the number of staged intents, including a pending stop.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

func (b *CommandBuffer) lenLocked() int {
	n := len(b.pending)
	if b.stop != nil {
		n++
	}
	return n
}

func (b *CommandBuffer) add(key string) {
	if b.metrics != nil {
		b.metrics.Add(key, 1)
	}
}

func (b *CommandBuffer) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(b.lenLocked()))
}
