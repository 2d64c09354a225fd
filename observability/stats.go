// Package observability aggregates runtime counters for the monitoring
// worker. Recording must stay cheap: it sits on the message hot path.
package observability

import (
	"sync"

	"github.com/abadojack/whatlanggo"
)

// Snapshot is the point-in-time view logged by the monitoring worker.
type Snapshot struct {
	Connections    uint64
	Disconnections uint64
	Messages       uint64
	DroppedEvents  uint64
	Languages      map[string]uint64
}

// Stats tracks traffic counters and the language distribution of message
// text. Safe for concurrent use.
type Stats struct {
	mu             sync.Mutex
	connections    uint64
	disconnections uint64
	messages       uint64
	droppedEvents  uint64
	languages      map[string]uint64
}

func NewStats() *Stats {
	return &Stats{languages: make(map[string]uint64)}
}

func (s *Stats) RecordConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections++
}

func (s *Stats) RecordDisconnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnections++
}

// RecordMessage counts the message and tallies its detected language.
func (s *Stats) RecordMessage(text string) {
	info := whatlanggo.Detect(text)
	lang := info.Lang.Iso6391()
	if lang == "" {
		lang = "unknown"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages++
	s.languages[lang]++
}

func (s *Stats) RecordDroppedEvents(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedEvents += n
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	languages := make(map[string]uint64, len(s.languages))
	for lang, count := range s.languages {
		languages[lang] = count
	}
	return Snapshot{
		Connections:    s.connections,
		Disconnections: s.disconnections,
		Messages:       s.messages,
		DroppedEvents:  s.droppedEvents,
		Languages:      languages,
	}
}
