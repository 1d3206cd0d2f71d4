// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/unodealer/internal/auth"
	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/jason-s-yu/unodealer/internal/middleware"
	"github.com/jason-s-yu/unodealer/internal/models"
)

// NewRouter builds the HTTP surface: the websocket gateway, health, and the admin API.
func NewRouter(gs *GameServer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", GameWSHandler(gs))
	mux.HandleFunc("GET /health", HealthHandler)
	mux.HandleFunc("POST /admin/login", AdminLoginHandler(gs))

	mux.Handle("POST /rooms", gs.requireAdmin(CreateRoomHandler(gs)))
	mux.Handle("GET /rooms/{code}", gs.requireAdmin(GetRoomHandler(gs)))
	mux.Handle("POST /rooms/{code}/start", gs.requireAdmin(StartRoomHandler(gs)))
	mux.Handle("GET /rooms/{code}/clients", gs.requireAdmin(RoomClientsHandler(gs)))
	mux.Handle("POST /players", gs.requireAdmin(CreatePlayerHandler(gs)))
	mux.Handle("GET /players/{code}", gs.requireAdmin(GetPlayerHandler(gs)))

	return middleware.LogMiddleware(gs.Logger)(mux)
}

// requireAdmin rejects requests without an admin token. Without a signer the API is open.
func (gs *GameServer) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gs.Signer != nil {
			if _, err := gs.Signer.VerifyRole(requestToken(r), auth.RoleAdmin); err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					http.Error(w, "admin token required", http.StatusForbidden)
					return
				}
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	})
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

// AdminLoginHandler exchanges the admin password for an admin token.
func AdminLoginHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gs.AdminHash == "" || gs.Signer == nil {
			http.Error(w, "admin login disabled", http.StatusNotFound)
			return
		}
		var req adminLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		ok, err := auth.ComparePasswordAndHash(req.Password, gs.AdminHash)
		if err != nil {
			gs.Logger.WithError(err).Error("admin hash could not be checked")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		token, err := gs.Signer.Issue("admin", auth.RoleAdmin)
		if err != nil {
			http.Error(w, "failed to issue token", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     "auth_token",
			Value:    token,
			HttpOnly: true,
			Path:     "/",
		})
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

type createRoomRequest struct {
	Code      string                 `json:"code"`
	Name      string                 `json:"name"`
	Players   []string               `json:"players"`
	TotalTurn int                    `json:"total_turn"`
	WhiteWild string                 `json:"white_wild"`
	Rules     map[string]interface{} `json:"rules"`
}

// CreateRoomHandler registers a NEW room for existing players.
func CreateRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if len(req.Players) < 2 {
			http.Error(w, "a room needs at least two players", http.StatusBadRequest)
			return
		}
		seen := make(map[string]bool, len(req.Players))
		for _, p := range req.Players {
			if p == "" || seen[p] {
				http.Error(w, "player codes must be unique and non-empty", http.StatusBadRequest)
				return
			}
			seen[p] = true
			if _, err := gs.Players.GetPlayer(r.Context(), p); err != nil {
				if errors.Is(err, game.ErrPlayerNotFound) {
					http.Error(w, "unknown player "+p, http.StatusBadRequest)
					return
				}
				http.Error(w, "failed to load player", http.StatusInternalServerError)
				return
			}
		}
		if req.TotalTurn < 1 {
			http.Error(w, "total_turn must be at least 1", http.StatusBadRequest)
			return
		}
		whiteWild, err := models.ParseWhiteWildRule(req.WhiteWild)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := game.ParseRules(req.Rules, gs.Tables.Rules()); err != nil {
			http.Error(w, "invalid rules: "+err.Error(), http.StatusBadRequest)
			return
		}

		room := &models.Room{
			Code:      req.Code,
			Name:      req.Name,
			Players:   req.Players,
			Status:    models.RoomNew,
			TotalTurn: req.TotalTurn,
			WhiteWild: whiteWild,
			Rules:     req.Rules,
			Score:     make(map[string]int),
			CreatedAt: time.Now().UTC(),
		}
		if room.Code == "" {
			room.Code = uuid.NewString()
		}
		if err := gs.Rooms.CreateRoom(r.Context(), room); err != nil {
			http.Error(w, "failed to create room: "+err.Error(), http.StatusConflict)
			return
		}
		gs.Logger.WithField("room", room.Code).Info("room created")
		writeJSON(w, http.StatusCreated, room)
	}
}

type roomResponse struct {
	Room *models.Room   `json:"room"`
	Desk *game.DeskView `json:"desk,omitempty"`
}

// GetRoomHandler returns the room record and, while a turn is live, the public desk view.
func GetRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		room, err := gs.Rooms.GetRoom(r.Context(), code)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		resp := roomResponse{Room: room}
		if t, ok := gs.Tables.GetTable(code); ok {
			if view, err := t.View(r.Context(), ""); err == nil {
				resp.Desk = &view
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// StartRoomHandler deals the first turn of a NEW room.
func StartRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		err := gs.StartRoom(r.Context(), code)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"room": code, "status": string(models.RoomStarting)})
		case errors.Is(err, game.ErrRoomNotFound):
			http.Error(w, "room not found", http.StatusNotFound)
		default:
			// not enough players connected, or the room already left NEW
			http.Error(w, err.Error(), http.StatusConflict)
		}
	}
}

// RoomClientsHandler reports the connected players of a room straight from the hub.
func RoomClientsHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		clients := gs.Hub.Clients(code)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"room":    code,
			"clients": clients,
			"count":   len(clients),
		})
	}
}

type createPlayerRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type createPlayerResponse struct {
	Player *models.Player `json:"player"`
	Token  string         `json:"token,omitempty"`
}

// CreatePlayerHandler registers a player and hands back a player token for the gateway.
func CreatePlayerHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		p := &models.Player{Code: req.Code, Name: req.Name}
		if p.Code == "" {
			p.Code = uuid.NewString()
		}
		if err := gs.Players.CreatePlayer(r.Context(), p); err != nil {
			http.Error(w, "failed to create player: "+err.Error(), http.StatusConflict)
			return
		}
		resp := createPlayerResponse{Player: p}
		if gs.Signer != nil {
			token, err := gs.Signer.Issue(p.Code, auth.RolePlayer)
			if err != nil {
				http.Error(w, "failed to issue token", http.StatusInternalServerError)
				return
			}
			resp.Token = token
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func GetPlayerHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := gs.Players.GetPlayer(r.Context(), r.PathValue("code"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, game.ErrRoomNotFound) || errors.Is(err, game.ErrPlayerNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}
