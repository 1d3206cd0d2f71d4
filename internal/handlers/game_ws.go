// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/unodealer/internal/auth"
	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/jason-s-yu/unodealer/internal/hub"
	"github.com/jason-s-yu/unodealer/internal/middleware"
	"github.com/jason-s-yu/unodealer/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	subprotocol = "dealer"

	eventJoinRoom = "join-room"
	eventPing     = "ping"
)

// inboundMessage is one client frame.
type inboundMessage struct {
	Event string          `json:"event"`
	Ack   *int            `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ackError struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ackData struct {
	OK     bool        `json:"ok"`
	Error  *ackError   `json:"error,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

type outboundMessage struct {
	Event string      `json:"event"`
	Ack   *int        `json:"ack,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// joinResult is the ack payload of a successful join-room.
type joinResult struct {
	Room      string            `json:"room"`
	Status    models.RoomStatus `json:"status"`
	Players   []string          `json:"players"`
	Connected []string          `json:"connected"`
}

// GameWSHandler upgrades the connection, waits for join-room and then routes every game event to
// the room's table. Replies go through the hub connection so they stay ordered with game events.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := gs.Logger
		var subject string
		if gs.Signer != nil {
			sub, err := gs.Signer.VerifyRole(requestToken(r), auth.RolePlayer)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			subject = sub
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{subprotocol},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.WithError(err).Warn("websocket accept error")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != subprotocol {
			c.Close(BadSubprotocolError, "client must speak the dealer subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		s := &session{
			gs:      gs,
			ws:      c,
			subject: subject,
			log:     logger.WithField("remote", r.RemoteAddr),
		}
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readErr := s.readLoop(ctx)
		s.leave()
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// session is the state of one websocket connection.
type session struct {
	gs      *GameServer
	ws      *websocket.Conn
	subject string
	log     *logrus.Entry

	player     string
	table      *game.Table
	conn       *hub.Conn
	writerDone chan struct{}
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		typ, data, err := s.ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.log.Warn("ignoring non-text frame")
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.replyError(ctx, nil, fmt.Errorf("%w: invalid json", game.ErrMalformed))
			continue
		}

		switch msg.Event {
		case eventPing:
			s.send(ctx, outboundMessage{Event: "pong", Ack: msg.Ack})
		case eventJoinRoom:
			if closeCode, err := s.join(ctx, msg); err != nil {
				s.replyError(ctx, msg.Ack, err)
				if closeCode != 0 {
					s.closeWith(closeCode, "join rejected")
					return nil
				}
			}
		default:
			if s.table == nil {
				s.replyError(ctx, msg.Ack, fmt.Errorf("%w: join-room first", game.ErrNotPlayer))
				continue
			}
			if drop := s.command(ctx, msg); drop {
				s.log.WithField("player", s.player).Info("room unavailable, dropping connection")
				s.closeWith(RoomUnavailableError, "not enough players connected")
				return nil
			}
		}
	}
}

// join seats the connection at a room. A non-zero close code means the connection must end.
func (s *session) join(ctx context.Context, msg inboundMessage) (websocket.StatusCode, error) {
	if s.table != nil {
		return 0, fmt.Errorf("%w: already joined %s", game.ErrMalformed, s.table.Code())
	}
	var data models.JoinRoomData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.RoomCode == "" || data.Player == "" {
		return 0, fmt.Errorf("%w: join-room needs room_code and player", game.ErrMalformed)
	}
	if s.subject != "" && s.subject != data.Player {
		return InvalidAuthTokenError, fmt.Errorf("%w: token belongs to another player", game.ErrNotPlayer)
	}

	room, err := s.gs.Rooms.GetRoom(ctx, data.RoomCode)
	if err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			return InvalidRoomError, fmt.Errorf("%w: room %s does not exist", game.ErrNotPlayer, data.RoomCode)
		}
		return 0, err
	}
	if !room.HasPlayer(data.Player) {
		return InvalidRoomError, fmt.Errorf("%w: %s has no seat in %s", game.ErrNotPlayer, data.Player, room.Code)
	}
	if room.Status == models.RoomFinish {
		return InvalidRoomError, fmt.Errorf("%w: room %s is finished", game.ErrTurnNotActive, room.Code)
	}

	t, err := s.gs.Tables.Open(ctx, room.Code)
	if err != nil {
		return 0, err
	}
	s.player = data.Player
	s.table = t
	s.log = s.log.WithFields(logrus.Fields{"room": room.Code, "player": data.Player})
	s.conn = s.gs.Hub.Register(room.Code, data.Player)
	s.writerDone = make(chan struct{})
	go func() {
		defer close(s.writerDone)
		s.conn.WritePump(ctx, s.ws, s.log)
	}()

	s.reply(ctx, msg.Ack, &ackData{OK: true, Result: joinResult{
		Room:      room.Code,
		Status:    room.Status,
		Players:   room.Players,
		Connected: s.gs.Hub.Clients(room.Code),
	}})
	s.log.Info("player joined room")

	if room.Status == models.RoomStarting {
		if err := t.Sync(ctx, data.Player); err != nil {
			s.log.WithError(err).Warn("failed to sync joining player")
		}
		return 0, nil
	}
	s.gs.maybeAutoStart(ctx, t, len(room.Players))
	return 0, nil
}

// command runs one game event and acks it. It reports whether the connection must be dropped.
func (s *session) command(ctx context.Context, msg inboundMessage) bool {
	cmd, err := decodeCommand(s.player, msg)
	if err != nil {
		s.replyError(ctx, msg.Ack, err)
		return false
	}
	o, err := s.table.Handle(ctx, cmd)
	if err != nil {
		s.replyError(ctx, msg.Ack, err)
		return game.KindOf(err) == game.KindRoomUnavailable
	}
	if o != nil && o.Violation != nil {
		s.replyError(ctx, msg.Ack, o.Violation)
		return false
	}
	s.reply(ctx, msg.Ack, &ackData{OK: true})
	return false
}

// decodeCommand maps a protocol event onto a dealer command. A known event whose payload cannot
// be decoded still yields a command, marked malformed, so the dealer penalizes the sender. Only
// unknown events are an error.
func decodeCommand(player string, msg inboundMessage) (game.Command, error) {
	cmd := game.Command{Kind: game.CommandKind(msg.Event), Player: player}
	malformed := func(err error) (game.Command, error) {
		return game.Command{
			Kind:      cmd.Kind,
			Player:    player,
			Malformed: fmt.Errorf("%s: %v", msg.Event, err),
		}, nil
	}
	data := msg.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch cmd.Kind {
	case game.CmdColorOfWild:
		var p models.ColorOfWildData
		if err := json.Unmarshal(data, &p); err != nil {
			return malformed(err)
		}
		cmd.Color = p.ColorOfWild
	case game.CmdPlayCard:
		var p models.PlayCardData
		if err := json.Unmarshal(data, &p); err != nil {
			return malformed(err)
		}
		cmd.Card, cmd.YellUno, cmd.Color = p.CardPlay, p.YellUno, p.ColorOfWild
	case game.CmdDrawCard:
	case game.CmdPlayDrawCard:
		var p models.PlayDrawCardData
		if err := json.Unmarshal(data, &p); err != nil {
			return malformed(err)
		}
		cmd.IsPlay, cmd.YellUno, cmd.Color = p.IsPlayCard, p.YellUno, p.ColorOfWild
	case game.CmdChallenge:
		var p models.ChallengeData
		if err := json.Unmarshal(data, &p); err != nil {
			return malformed(err)
		}
		cmd.IsChallenge = p.IsChallenge
	case game.CmdPointNotSayUno:
		var p models.PointedNotSayUnoData
		if err := json.Unmarshal(data, &p); err != nil {
			return malformed(err)
		}
		cmd.Target = p.Target
	case game.CmdSpecialLogic:
		var p models.SpecialLogicData
		if err := json.Unmarshal(data, &p); err != nil {
			return malformed(err)
		}
		cmd.Title = p.Title
	default:
		// timeouts are raised by the server only
		return game.Command{}, fmt.Errorf("%w: unknown event %q", game.ErrMalformed, msg.Event)
	}
	return cmd, nil
}

func (s *session) reply(ctx context.Context, ack *int, data *ackData) {
	if ack == nil {
		if data.OK {
			return
		}
		s.send(ctx, outboundMessage{Event: "error", Data: data.Error})
		return
	}
	s.send(ctx, outboundMessage{Event: "ack", Ack: ack, Data: data})
}

func (s *session) replyError(ctx context.Context, ack *int, err error) {
	ae := &ackError{
		Kind:    game.KindOf(err).String(),
		Code:    game.CodeOf(err),
		Message: err.Error(),
	}
	if game.KindOf(err) == game.KindInternal {
		s.log.WithError(err).Error("command failed")
		ae.Message = "internal error"
	}
	s.reply(ctx, ack, &ackData{OK: false, Error: ae})
}

// send writes directly before join and through the hub queue afterwards.
func (s *session) send(ctx context.Context, msg outboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.WithError(err).Warn("failed to marshal reply")
		return
	}
	if s.conn != nil {
		s.conn.Send(data)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.ws.Write(writeCtx, websocket.MessageText, data); err != nil && !strings.Contains(err.Error(), "closed") {
		s.log.WithError(err).Warn("failed to write reply")
	}
}

// flush closes the hub queue and waits for the writer to drain it.
func (s *session) flush() {
	if s.conn == nil {
		return
	}
	s.gs.Hub.Unregister(s.conn)
	select {
	case <-s.writerDone:
	case <-time.After(5 * time.Second):
		s.log.Warn("writer did not drain in time")
	}
}

// closeWith ends the connection with code once every queued frame was written.
func (s *session) closeWith(code websocket.StatusCode, reason string) {
	if s.conn == nil {
		s.ws.Close(code, reason)
		return
	}
	s.conn.SetCloseStatus(code, reason)
	s.flush()
	s.conn = nil
}

func (s *session) leave() {
	if s.conn == nil {
		return
	}
	s.flush()
	s.log.Info("player left room")
}
