package server

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"holocardserver/internal/engine"
)

// Room runs one match. All engine access goes through the room mutex;
// the engine itself is single threaded.
type Room struct {
	id    string
	log   *zap.Logger
	eng   *engine.Engine
	grace time.Duration

	mu      sync.Mutex
	clients map[string]engineClient
	timers  map[string]*time.Timer
	closed  bool

	onClose func(room *Room, reason string)
}

// engineClient is the slice of Client a room needs, so tests can run
// rooms without sockets.
type engineClient interface {
	sendJSON(v any)
}

func newRoom(id string, log *zap.Logger, eng *engine.Engine, grace time.Duration, onClose func(*Room, string)) *Room {
	return &Room{
		id:      id,
		log:     log.With(zap.String("room_id", id)),
		eng:     eng,
		grace:   grace,
		clients: make(map[string]engineClient),
		timers:  make(map[string]*time.Timer),
		onClose: onClose,
	}
}

func (r *Room) attach(playerID string, c engineClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[playerID] = c
}

// Start begins the match and delivers the opening events.
func (r *Room) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverEngine()
	r.eng.Begin()
	r.flushEvents()
}

// HandleAction feeds one player action into the engine. Engine panics
// abort the match instead of taking the server down.
func (r *Room) HandleAction(playerID, actionType string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	defer r.recoverEngine()
	r.eng.HandleAction(playerID, actionType, data)
	r.flushEvents()
	r.checkGameOver()
}

// HandleLeave is a voluntary forfeit.
func (r *Room) HandleLeave(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	defer r.recoverEngine()
	r.eng.Concede(playerID, engine.ReasonConcede)
	r.flushEvents()
	r.checkGameOver()
}

// HandleDisconnect starts the reconnect grace timer; if it expires the
// absent player loses.
func (r *Room) HandleDisconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	delete(r.clients, playerID)
	if r.grace <= 0 {
		r.concedeLocked(playerID, engine.ReasonDisconnect)
		return
	}
	r.timers[playerID] = time.AfterFunc(r.grace, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			return
		}
		if _, back := r.clients[playerID]; back {
			return
		}
		r.concedeLocked(playerID, engine.ReasonDisconnect)
	})
}

// HandleReconnect reattaches a returning player and replays their
// pending events.
func (r *Room) HandleReconnect(playerID string, c engineClient) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if t, ok := r.timers[playerID]; ok {
		t.Stop()
		delete(r.timers, playerID)
	}
	r.clients[playerID] = c
	for _, ev := range r.eng.ReplayEventsFor(playerID) {
		c.sendJSON(GameEventMessage{MessageType: MsgGameEvent, Event: ev})
	}
	return true
}

func (r *Room) concedeLocked(playerID, reason string) {
	defer r.recoverEngine()
	r.eng.Concede(playerID, reason)
	r.flushEvents()
	r.checkGameOver()
}

// flushEvents drains each player's event cursor to their connection.
// Events for absent players stay queued in the engine log for replay.
func (r *Room) flushEvents() {
	for _, playerID := range r.eng.PlayerIDs() {
		c, ok := r.clients[playerID]
		if !ok {
			continue
		}
		for _, ev := range r.eng.GrabEventsFor(playerID) {
			c.sendJSON(GameEventMessage{MessageType: MsgGameEvent, Event: ev})
		}
	}
}

func (r *Room) checkGameOver() {
	if r.closed || !r.eng.IsGameOver() {
		return
	}
	r.closeLocked("finished")
}

// recoverEngine converts an engine panic into an aborted match.
func (r *Room) recoverEngine() {
	if rec := recover(); rec != nil {
		r.log.Error("engine panic, aborting match", zap.Any("panic", rec))
		r.eng.Abort()
		r.flushEvents()
		r.closeLocked(engine.ReasonError)
	}
}

func (r *Room) closeLocked(reason string) {
	if r.closed {
		return
	}
	r.closed = true
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
	if r.onClose != nil {
		go r.onClose(r, reason)
	}
}
