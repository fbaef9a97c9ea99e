package server

import (
	"sort"
	"sync"

	"holocardserver/internal/cards"
	"holocardserver/internal/engine"
)

// GameTypeStandard is the only rule set the server currently runs.
const GameTypeStandard = "versus_standard"

// StandardQueue is the public matchmaking pool. Custom games use caller
// chosen queue names and only pair players who asked for the same one.
const StandardQueue = "main_matchmaking_normal"

type queueKey struct {
	name     string
	gameType string
}

// QueueEntry is one player waiting for a match.
type QueueEntry struct {
	PlayerID string
	Client   *Client
	Deck     engine.DeckList
}

// Matchmaker pools waiting players per (queue, game type) and pairs them
// first come, first served.
type Matchmaker struct {
	mu     sync.Mutex
	db     *cards.Database
	queues map[queueKey][]*QueueEntry
}

func NewMatchmaker(db *cards.Database) *Matchmaker {
	return &Matchmaker{
		db:     db,
		queues: make(map[queueKey][]*QueueEntry),
	}
}

// Join validates the request and either queues the entry or returns the
// matched pair. A non-empty errID rejects the request with no state
// change.
func (m *Matchmaker) Join(entry *QueueEntry, custom bool, queueName, gameType string) (pair [2]*QueueEntry, matched bool, errID string) {
	if gameType != GameTypeStandard {
		return pair, false, ErrInvalidGameType
	}
	if custom {
		if queueName == "" {
			return pair, false, ErrInvalidGameType
		}
	} else {
		queueName = StandardQueue
	}
	if !m.db.ValidateDeck(entry.Deck.OshiID, entry.Deck.Deck, entry.Deck.CheerDeck) {
		return pair, false, ErrInvalidDeck
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inQueueLocked(entry.PlayerID) {
		return pair, false, ErrAlreadyInMatch
	}
	key := queueKey{name: queueName, gameType: gameType}
	waiting := m.queues[key]
	if len(waiting) > 0 {
		opponent := waiting[0]
		m.queues[key] = waiting[1:]
		if len(m.queues[key]) == 0 {
			delete(m.queues, key)
		}
		return [2]*QueueEntry{opponent, entry}, true, ""
	}
	m.queues[key] = append(waiting, entry)
	return pair, false, ""
}

// Leave removes the player from whichever queue holds them.
func (m *Matchmaker) Leave(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, waiting := range m.queues {
		for i, e := range waiting {
			if e.PlayerID == playerID {
				m.queues[key] = append(waiting[:i], waiting[i+1:]...)
				if len(m.queues[key]) == 0 {
					delete(m.queues, key)
				}
				return true
			}
		}
	}
	return false
}

func (m *Matchmaker) InQueue(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inQueueLocked(playerID)
}

func (m *Matchmaker) inQueueLocked(playerID string) bool {
	for _, waiting := range m.queues {
		for _, e := range waiting {
			if e.PlayerID == playerID {
				return true
			}
		}
	}
	return false
}

// QueuedCount reports the number of waiting players across all queues.
func (m *Matchmaker) QueuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, waiting := range m.queues {
		n += len(waiting)
	}
	return n
}

// QueueInfo snapshots the queues for lobby broadcasts, stably ordered.
func (m *Matchmaker) QueueInfo() []QueueInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]QueueInfo, 0, len(m.queues)+1)
	seenStandard := false
	for key, waiting := range m.queues {
		if key.name == StandardQueue {
			seenStandard = true
		}
		out = append(out, QueueInfo{
			QueueName:    key.name,
			GameType:     key.gameType,
			PlayersCount: len(waiting),
		})
	}
	if !seenStandard {
		out = append(out, QueueInfo{
			QueueName: StandardQueue,
			GameType:  GameTypeStandard,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueName < out[j].QueueName })
	return out
}
