// Package server is the authoritative game peer used for development
// and integration testing. It keeps per-player profiles, the shared
// building list and open challenges in memory behind the same message
// protocol a production server would speak.
package server

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/mdns"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/afriverse/gameclient/proto"
	"github.com/afriverse/gameclient/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

type Server struct {
	Addr string

	state      *State
	httpServer *http.Server
	announcer  *mdns.Server
}

func New(addr string) *Server {
	return &Server{Addr: addr, state: NewState()}
}

// State exposes the shared world, mainly for tests.
func (s *Server) State() *State {
	return s.state
}

// Handler returns the HTTP surface: the WebSocket endpoint plus health
// and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start binds, announces the endpoint over mDNS and serves until
// Shutdown.
func (s *Server) Start() error {
	slog.Info("Starting game server", "addr", s.Addr)
	s.announce()

	s.httpServer = &http.Server{Addr: s.Addr, Handler: s.Handler()}
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// announce advertises the WebSocket endpoint on the local network so
// clients can discover it instead of configuring a URL. Announcement
// failures are not fatal; the server stays reachable by address.
func (s *Server) announce() {
	_, portStr, err := net.SplitHostPort(s.Addr)
	if err != nil {
		slog.Warn("Skipping mDNS announcement: unparsable listen address", "addr", s.Addr, "error", err)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		slog.Warn("Skipping mDNS announcement: unparsable port", "addr", s.Addr, "error", err)
		return
	}

	host, err := os.Hostname()
	if err != nil {
		host = "afriverse"
	}

	service, err := mdns.NewMDNSService(host, transport.MDNSService, "", "", port, nil, []string{"path=/ws"})
	if err != nil {
		slog.Warn("Failed to build mDNS service record", "error", err)
		return
	}
	announcer, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		slog.Warn("Failed to announce over mDNS", "error", err)
		return
	}
	s.announcer = announcer
	slog.Info("Announced game server over mDNS", "service", transport.MDNSService, "port", port)
}

func (s *Server) Shutdown() error {
	slog.Info("Shutting down game server", "addr", s.Addr)
	if s.announcer != nil {
		s.announcer.Shutdown()
		s.announcer = nil
	}
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}

	go s.handleConnection(conn, r.RemoteAddr)
}

func (s *Server) handleConnection(conn *websocket.Conn, remoteAddr string) {
	sess := newSession(conn)
	s.state.add(sess)
	slog.Info("Player connected", "addr", remoteAddr, "id", sess.ID)

	defer func() {
		s.state.remove(sess.ID)
		conn.Close()
		slog.Info("Player disconnected", "addr", remoteAddr, "id", sess.ID)
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket connection error", "addr", remoteAddr, "error", err)
			}
			break
		}

		msg, err := proto.Decode(frame)
		if err != nil {
			slog.Warn("Invalid frame received", "from", sess.ID, "error", err, "data", string(frame))
			continue
		}

		s.handleMessage(sess, msg)
	}
}

// rewardFor maps a marketplace category to the daily reward its items
// yield.
func rewardFor(category string) int {
	switch category {
	case "Islands":
		return 10
	case "NFT Characters":
		return 5
	case "Buildings":
		return 2
	case "Land":
		return 3
	case "Weapons":
		return 1
	default:
		return 1
	}
}

func (s *Server) handleMessage(sess *Session, msg proto.Message) {
	slog.Debug("Message received", "from", sess.ID, "type", msg.Type)

	switch msg.Type {
	case proto.TypeGetProfile:
		if err := sess.send(profileMessage{Type: proto.TypeProfile, Profile: sess.profile()}); err != nil {
			slog.Warn("Failed to send profile", "to", sess.ID, "error", err)
		}

	case proto.TypeListPlayers:
		players := s.state.others(sess.ID)
		if err := sess.send(playerListMessage{Type: proto.TypePlayerList, Players: players}); err != nil {
			slog.Warn("Failed to send player list", "to", sess.ID, "error", err)
		}

	case proto.TypePurchase:
		var req proto.PurchaseRequest
		if err := msg.DecodePayload(&req); err != nil {
			slog.Warn("Invalid purchase request", "from", sess.ID, "error", err)
			return
		}

		sess.addProperty(proto.Property{Name: req.Category + " Item", Reward: rewardFor(req.Category)})
		if err := sess.send(purchaseAckMessage{Type: proto.TypePurchaseAck, ItemID: req.ItemID}); err != nil {
			slog.Warn("Failed to send purchase ack", "to", sess.ID, "error", err)
		}

		// Buildings appear in the shared world for everyone.
		if req.Category == "Buildings" {
			s.state.placeBuilding()
			s.state.broadcast(worldUpdateMessage{Type: proto.TypeWorldUpdate, Buildings: s.state.Buildings()})
		}

	case proto.TypeChallenge:
		var req proto.ChallengeRequest
		if err := msg.DecodePayload(&req); err != nil {
			slog.Warn("Invalid challenge request", "from", sess.ID, "error", err)
			return
		}

		target, ok := s.state.get(req.Target)
		if !ok {
			slog.Warn("Challenge target not connected", "from", sess.ID, "target", req.Target)
			return
		}

		relay := challengeRequestMessage{
			Type:           proto.TypeChallengeRequest,
			Challenger:     sess.ID,
			ChallengerName: sess.Username(),
			Stake:          req.Stake,
		}
		if err := target.send(relay); err != nil {
			slog.Warn("Failed to relay challenge", "to", target.ID, "error", err)
			return
		}
		ack := challengeResponseMessage{
			Type:    proto.TypeChallengeResponse,
			Message: "Challenge sent to " + target.Username(),
		}
		if err := sess.send(ack); err != nil {
			slog.Warn("Failed to send challenge response", "to", sess.ID, "error", err)
		}

	default:
		slog.Warn("Unhandled message", "from", sess.ID, "type", msg.Type)
	}
}
