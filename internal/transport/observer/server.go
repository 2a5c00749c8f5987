// Package observer serves the debug observer channel: a loopback-only
// websocket feed that mirrors every simulation tick and its terrain diff to
// local tooling. It is a read-only tap; observers cannot mutate the world.
package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"majestik.world/internal/observerproto"
)

// WorldInfo is the static world description returned by the bootstrap
// endpoint and frozen for the lifetime of the server.
type WorldInfo struct {
	MapSizeX uint32
	MapSizeY uint32
	SeaLevel int32
	Seed     int64
	GameMode string
}

// TickUpdate is one tick's worth of data to fan out to subscribers.
// Coordinate lists are the already-normalized diff of that tick.
type TickUpdate struct {
	Tick               uint64
	TimeSeconds        float64
	ProgramTimeSeconds float64
	TimeOfDaySeconds   float64

	New      [][2]int32
	Modified [][2]int32
	Removed  [][2]int32
}

type subscriber struct {
	out       chan []byte
	maxCoords atomic.Int64
}

type Server struct {
	info WorldInfo
	log  *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	maxCoordsCap int
	sendBuffer   int

	mu   sync.Mutex
	subs map[uint64]*subscriber

	lastTick atomic.Uint64
	dropped  atomic.Uint64

	httpSrv *http.Server
	ln      net.Listener
}

// NewServer builds an observer server for one core instance. maxCoordsCap
// bounds how many coordinates a subscriber may request per diff list;
// sendBuffer sizes each subscriber's outbound queue; writeBufferK sizes the
// websocket read/write buffers in KiB.
func NewServer(info WorldInfo, maxCoordsCap, sendBuffer, writeBufferK int, logger *log.Logger) *Server {
	if maxCoordsCap <= 0 {
		maxCoordsCap = 256
	}
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	if writeBufferK <= 0 {
		writeBufferK = 64
	}
	return &Server{
		info: info,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  writeBufferK * 1024,
			WriteBufferSize: writeBufferK * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback gate below
		},
		maxCoordsCap: maxCoordsCap,
		sendBuffer:   sendBuffer,
		subs:         map[uint64]*subscriber{},
	}
}

// Start binds addr and serves until Close. addr must resolve to a loopback
// listener; non-loopback remotes are rejected per request regardless.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("observer listen %s: %w", addr, err)
	}
	s.ln = ln
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", s.WSHandler())
	s.httpSrv = &http.Server{Handler: mux}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Printf("ERROR observer serve: %v", err)
		}
	}()
	s.log.Printf("observer listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close stops accepting connections and disconnects all subscribers.
func (s *Server) Close() {
	if s.httpSrv != nil {
		_ = s.httpSrv.Close()
	}
	s.mu.Lock()
	for id, sub := range s.subs {
		close(sub.out)
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

// Publish fans one tick out to every subscriber. Slow subscribers get the
// update dropped rather than stalling the simulation thread.
func (s *Server) Publish(u TickUpdate) {
	s.lastTick.Store(u.Tick)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	for _, sub := range s.subs {
		b, err := json.Marshal(s.tickMsg(u, int(sub.maxCoords.Load())))
		if err != nil {
			continue
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Dropped reports how many tick messages were discarded for slow observers.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) tickMsg(u TickUpdate, maxCoords int) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:               "TICK",
		ProtocolVersion:    observerproto.Version,
		Tick:               u.Tick,
		TimeSeconds:        u.TimeSeconds,
		ProgramTimeSeconds: u.ProgramTimeSeconds,
		TimeOfDaySeconds:   u.TimeOfDaySeconds,
		Diff: observerproto.DiffSummary{
			NewCount:      len(u.New),
			ModifiedCount: len(u.Modified),
			RemovedCount:  len(u.Removed),
		},
	}
	msg.Diff.New = truncCoords(u.New, maxCoords)
	msg.Diff.Modified = truncCoords(u.Modified, maxCoords)
	msg.Diff.Removed = truncCoords(u.Removed, maxCoords)
	return msg
}

func truncCoords(coords [][2]int32, max int) [][2]int32 {
	if len(coords) == 0 || max <= 0 {
		return nil
	}
	if len(coords) > max {
		return coords[:max]
	}
	return coords
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Tick:            s.lastTick.Load(),
			WorldParams: observerproto.WorldParams{
				MapSizeX: s.info.MapSizeX,
				MapSizeY: s.info.MapSizeY,
				SeaLevel: s.info.SeaLevel,
				Seed:     s.info.Seed,
				GameMode: s.info.GameMode,
			},
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		id := s.nextID.Add(1)
		entry := &subscriber{out: make(chan []byte, s.sendBuffer)}
		entry.maxCoords.Store(int64(s.clampMaxCoords(sub.MaxCoords)))

		s.mu.Lock()
		s.subs[id] = entry
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			if cur, ok := s.subs[id]; ok && cur == entry {
				delete(s.subs, id)
			}
			s.mu.Unlock()
		}()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for b := range entry.out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
			writeErr <- nil
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var upd observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &upd); err != nil {
				continue
			}
			if upd.Type != "SUBSCRIBE" || upd.ProtocolVersion != observerproto.Version {
				continue
			}
			entry.maxCoords.Store(int64(s.clampMaxCoords(upd.MaxCoords)))
		}

		s.mu.Lock()
		if cur, ok := s.subs[id]; ok && cur == entry {
			delete(s.subs, id)
			close(entry.out)
		}
		s.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) clampMaxCoords(v int) int {
	if v <= 0 {
		return s.maxCoordsCap
	}
	if v > s.maxCoordsCap {
		return s.maxCoordsCap
	}
	return v
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
