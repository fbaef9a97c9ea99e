package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"holocardserver/internal/cards"
	"holocardserver/internal/engine"
	"holocardserver/internal/state"
)

// Config carries the server knobs from main.
type Config struct {
	DisconnectGrace time.Duration
}

// Server is the websocket shell: lobby, matchmaking and rooms.
type Server struct {
	log     *zap.Logger
	db      *cards.Database
	cfg     Config
	mm      *Matchmaker
	metrics *Metrics

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
	rooms   map[string]*Room // player id -> room
}

func New(log *zap.Logger, db *cards.Database, cfg Config, reg prometheus.Registerer) *Server {
	return &Server{
		log:     log,
		db:      db,
		cfg:     cfg,
		mm:      NewMatchmaker(db),
		metrics: NewMetrics(reg),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*Client),
		rooms:   make(map[string]*Room),
	}
}

// Router builds the HTTP surface: the websocket endpoint plus health and
// metrics.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", s.handleWS)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cards": s.db.Len()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	// A client holding a live match may resume it by presenting its old
	// player id within the disconnect grace window.
	playerID := c.Query("player_id")
	var room *Room
	if playerID != "" {
		room = s.roomFor(playerID)
	}
	if room == nil {
		playerID = uuid.NewString()
	}
	client := newClient(playerID, conn, s)

	s.mu.Lock()
	s.clients[playerID] = client
	s.mu.Unlock()
	s.metrics.ConnectedClients.Inc()
	client.log.Info("client connected", zap.Bool("resumed", room != nil))

	go client.writePump()
	go client.readPump()

	if room != nil {
		room.HandleReconnect(playerID, client)
	}
	s.broadcastServerInfo()
}

func (s *Server) handleMessage(c *Client, msg *ClientMessage) {
	s.metrics.MessagesReceived.WithLabelValues(msg.MessageType).Inc()
	switch msg.MessageType {
	case MsgJoinServer:
		c.sendJSON(s.serverInfoFor(c.id))
	case MsgJoinMatchQueue:
		s.handleJoinQueue(c, msg)
	case MsgLeaveMatchQueue:
		s.mm.Leave(c.id)
		s.metrics.QueuedPlayers.Set(float64(s.mm.QueuedCount()))
		s.broadcastServerInfo()
	case MsgLeaveGame:
		room := s.roomFor(c.id)
		if room == nil {
			c.sendJSON(newError(ErrNotInRoom, "no active game"))
			return
		}
		room.HandleLeave(c.id)
	case MsgGameAction:
		s.handleGameAction(c, msg)
	default:
		c.sendJSON(newError(ErrInvalidMessage, "unknown message_type"))
	}
}

func (s *Server) handleJoinQueue(c *Client, msg *ClientMessage) {
	if s.roomFor(c.id) != nil {
		c.sendJSON(newError(ErrAlreadyInMatch, "already in a game"))
		return
	}
	entry := &QueueEntry{
		PlayerID: c.id,
		Client:   c,
		Deck: engine.DeckList{
			OshiID:    msg.OshiID,
			Deck:      msg.Deck,
			CheerDeck: msg.CheerDeck,
		},
	}
	pair, matched, errID := s.mm.Join(entry, msg.CustomGame, msg.QueueName, msg.GameType)
	if errID != "" {
		c.sendJSON(newError(errID, "cannot join queue"))
		return
	}
	s.metrics.QueuedPlayers.Set(float64(s.mm.QueuedCount()))
	if matched {
		s.startMatch(pair)
	}
	s.broadcastServerInfo()
}

func (s *Server) startMatch(pair [2]*QueueEntry) {
	ids := [2]string{pair[0].PlayerID, pair[1].PlayerID}
	decks := [2]engine.DeckList{pair[0].Deck, pair[1].Deck}
	eng, err := engine.NewEngine(s.db, state.NewSeeded(state.CryptoSeed()), ids, decks)
	if err != nil {
		// Decks were validated at queue time; this is a server fault.
		s.log.Error("engine construction failed", zap.Error(err))
		for _, e := range pair {
			e.Client.sendJSON(newError(ErrInvalidDeck, "match setup failed"))
		}
		return
	}

	room := newRoom(uuid.NewString(), s.log, eng, s.cfg.DisconnectGrace, s.finishMatch)
	s.mu.Lock()
	for _, e := range pair {
		s.rooms[e.PlayerID] = room
	}
	s.mu.Unlock()
	for _, e := range pair {
		room.attach(e.PlayerID, e.Client)
	}
	s.metrics.MatchesStarted.Inc()
	s.metrics.ActiveMatches.Inc()
	s.log.Info("match started",
		zap.String("room_id", room.id),
		zap.String("player_a", ids[0]),
		zap.String("player_b", ids[1]))
	room.Start()
}

func (s *Server) finishMatch(room *Room, reason string) {
	s.mu.Lock()
	for _, playerID := range room.eng.PlayerIDs() {
		if s.rooms[playerID] == room {
			delete(s.rooms, playerID)
		}
	}
	s.mu.Unlock()
	s.metrics.ActiveMatches.Dec()
	s.metrics.MatchesFinished.WithLabelValues(reason).Inc()
	s.log.Info("match finished",
		zap.String("room_id", room.id),
		zap.String("reason", reason),
		zap.String("winner", room.eng.WinnerID()))
	s.broadcastServerInfo()
}

func (s *Server) handleGameAction(c *Client, msg *ClientMessage) {
	room := s.roomFor(c.id)
	if room == nil {
		c.sendJSON(newError(ErrNotInRoom, "no active game"))
		return
	}
	if msg.ActionType == "" {
		c.sendJSON(newError(ErrInvalidGameMessage, "missing action_type"))
		return
	}
	var data map[string]any
	if len(msg.ActionData) > 0 {
		if err := json.Unmarshal(msg.ActionData, &data); err != nil {
			c.sendJSON(newError(ErrInvalidGameMessage, "malformed action_data"))
			return
		}
	}
	room.HandleAction(c.id, msg.ActionType, data)
}

func (s *Server) handleDisconnect(c *Client) {
	s.mu.Lock()
	if s.clients[c.id] != c {
		s.mu.Unlock()
		return
	}
	delete(s.clients, c.id)
	s.mu.Unlock()

	s.metrics.ConnectedClients.Dec()
	s.mm.Leave(c.id)
	s.metrics.QueuedPlayers.Set(float64(s.mm.QueuedCount()))
	if room := s.roomFor(c.id); room != nil {
		room.HandleDisconnect(c.id)
	}
	c.log.Info("client disconnected")
	s.broadcastServerInfo()
}

func (s *Server) roomFor(playerID string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[playerID]
}

func (s *Server) serverInfoFor(playerID string) ServerInfo {
	s.mu.Lock()
	count := len(s.clients)
	s.mu.Unlock()
	return ServerInfo{
		MessageType:  MsgServerInfo,
		YourID:       playerID,
		PlayersCount: count,
		QueueInfo:    s.mm.QueueInfo(),
	}
}

// broadcastServerInfo pushes the lobby snapshot to every connected
// client.
func (s *Server) broadcastServerInfo() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		c.sendJSON(s.serverInfoFor(c.id))
	}
}
