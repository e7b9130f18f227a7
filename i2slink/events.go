package i2slink

import (
	"strconv"
	"sync/atomic"
)

// EventKind identifies a diagnostic event.
type EventKind uint8

const (
	EventInitDone EventKind = iota
	EventFrameError
	EventOverrun
	EventUnderrun
	EventResynced
	EventFrames
	EventMasterFrameError
	EventMasterOverrun
	EventMasterUnderrun
)

// Event is one diagnostic record. Count is only meaningful for EventFrames.
type Event struct {
	Kind  EventKind
	Count uint32
}

// String returns the diagnostic line for the event.
func (e Event) String() string {
	switch e.Kind {
	case EventInitDone:
		return "init done"
	case EventFrameError:
		return "Frame Error"
	case EventOverrun:
		return "Overrun"
	case EventUnderrun:
		return "underrun"
	case EventResynced:
		return "Resynced"
	case EventFrames:
		return strconv.FormatUint(uint64(e.Count), 10) + " frame received"
	case EventMasterFrameError:
		return "master Frame Error"
	case EventMasterOverrun:
		return "master Overrun"
	case EventMasterUnderrun:
		return "master underrun"
	}
	return "unknown event"
}

// Sink is the external diagnostic channel.
type Sink interface {
	WriteLineString(s string)
}

// EventLogSize is the capacity of an EventLog. Must be a power of two.
const EventLogSize = 16

type eventSlot struct {
	seq atomic.Uint32
	ev  Event
}

// EventLog is a bounded lock-free queue. Any number of interrupt handlers may
// Post concurrently; a single foreground goroutine drains it into a Sink.
type EventLog struct {
	slots   [EventLogSize]eventSlot
	head    atomic.Uint32 // next slot to post
	tail    uint32        // next slot to drain; owned by the consumer
	dropped atomic.Uint32
}

// NewEventLog returns an empty log.
func NewEventLog() *EventLog {
	l := &EventLog{}
	for i := range l.slots {
		l.slots[i].seq.Store(uint32(i))
	}
	return l
}

// Post enqueues ev. It never blocks: when the log is full the event is
// dropped, counted and false is returned.
func (l *EventLog) Post(ev Event) bool {
	for {
		pos := l.head.Load()
		slot := &l.slots[pos%EventLogSize]
		seq := slot.seq.Load()
		switch diff := int32(seq - pos); {
		case diff == 0:
			if l.head.CompareAndSwap(pos, pos+1) {
				slot.ev = ev
				slot.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			l.dropped.Add(1)
			return false
		}
	}
}

// Drain writes every queued event to sink and returns the number written.
// Drain must only be called from one goroutine at a time.
func (l *EventLog) Drain(sink Sink) int {
	n := 0
	for {
		slot := &l.slots[l.tail%EventLogSize]
		if slot.seq.Load() != l.tail+1 {
			return n
		}
		ev := slot.ev
		slot.seq.Store(l.tail + EventLogSize)
		l.tail++
		if sink != nil {
			sink.WriteLineString(ev.String())
		}
		n++
	}
}

// Dropped returns the number of events lost because the log was full.
func (l *EventLog) Dropped() uint32 { return l.dropped.Load() }

// PrintSink writes diagnostic lines with the builtin println, which goes to
// the default serial console on TinyGo targets.
type PrintSink struct{}

func (PrintSink) WriteLineString(s string) { println(s) }
