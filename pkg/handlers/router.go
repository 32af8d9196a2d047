package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	websocketHub "github.com/backsoul/trivia/pkg/websocket"
	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// HealthChecker is an optional dependency probed by /api/health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Router enruta todas las peticiones del servidor
type Router struct {
	admin  *AdminHandler
	player *PlayerHandler
	hub    *websocketHub.Hub
	health HealthChecker
	webDir string
}

func NewRouter(admin *AdminHandler, player *PlayerHandler, hub *websocketHub.Hub, health HealthChecker, webDir string) *Router {
	return &Router{
		admin:  admin,
		player: player,
		hub:    hub,
		health: health,
		webDir: webDir,
	}
}

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
		return true // displays run on the same host
	},
}

func (rt *Router) Handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	log.Debug().Str("method", method).Str("path", path).Msg("📡 request")

	ctx.Response.Header.Set("Server", "Trivia-FastHTTP/1.0")
	ctx.Response.Header.Set("Cache-Control", "no-cache")

	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, "+AdminPasswordHeader)

	if method == fasthttp.MethodOptions {
		ctx.SetStatusCode(fasthttp.StatusOK)
		return
	}

	switch {
	case path == "/":
		rt.serveFile(ctx, "player.html")
	case path == "/admin":
		rt.serveFile(ctx, "admin.html")
	case path == "/api/health":
		rt.healthCheck(ctx)
	case path == "/ws":
		rt.serveWS(ctx)
	case strings.HasPrefix(path, "/api/admin/"):
		rt.routeAdmin(ctx, method, strings.TrimPrefix(path, "/api/admin/"))
	case strings.HasPrefix(path, "/api/player/"):
		rt.routePlayer(ctx, method, strings.TrimPrefix(path, "/api/player/"))
	default:
		serve404(ctx)
	}
}

func (rt *Router) routeAdmin(ctx *fasthttp.RequestCtx, method, route string) {
	if route == "verify-password" && method == fasthttp.MethodPost {
		rt.admin.VerifyPassword(ctx)
		return
	}
	if !rt.admin.Authorized(ctx) {
		respondWithError(ctx, fasthttp.StatusUnauthorized, "Invalid password")
		return
	}

	h := rt.admin
	parts := strings.Split(route, "/")
	switch {
	case route == "questions" && method == fasthttp.MethodGet:
		h.ListQuestions(ctx)
	case route == "questions" && method == fasthttp.MethodPost:
		h.AddQuestion(ctx)
	case route == "questions/export" && method == fasthttp.MethodGet:
		h.ExportQuestions(ctx)
	case route == "questions/import" && method == fasthttp.MethodPost:
		h.ImportQuestions(ctx)
	case len(parts) == 2 && parts[0] == "questions" && method == fasthttp.MethodPut:
		ctx.SetUserValue("id", parts[1])
		h.EditQuestion(ctx)
	case len(parts) == 2 && parts[0] == "questions" && method == fasthttp.MethodDelete:
		ctx.SetUserValue("id", parts[1])
		h.DeleteQuestion(ctx)
	case route == "settings" && method == fasthttp.MethodGet:
		h.GetSettings(ctx)
	case route == "settings" && method == fasthttp.MethodPost:
		h.UpdateSettings(ctx)
	case route == "game-state" && method == fasthttp.MethodGet:
		h.GetGameState(ctx)
	case route == "spin-wheel" && method == fasthttp.MethodPost:
		h.ForceSpinWheel(ctx)
	case route == "start-game" && method == fasthttp.MethodPost:
		h.ForceStartGame(ctx)
	case route == "score" && method == fasthttp.MethodPost:
		h.SetScore(ctx)
	case route == "reset" && method == fasthttp.MethodPost:
		h.ResetGame(ctx)
	case route == "player-window" && method == fasthttp.MethodPost:
		h.OpenPlayerWindow(ctx)
	case route == "exit" && method == fasthttp.MethodPost:
		h.Exit(ctx)
	default:
		serve404(ctx)
	}
}

func (rt *Router) routePlayer(ctx *fasthttp.RequestCtx, method, route string) {
	h := rt.player
	parts := strings.Split(route, "/")

	// /api/player/questions/{index}[/answer|/timeout]
	if parts[0] == "questions" && len(parts) >= 2 {
		ctx.SetUserValue("index", parts[1])
		switch {
		case len(parts) == 2 && method == fasthttp.MethodGet:
			h.GetQuestion(ctx)
		case len(parts) == 3 && parts[2] == "answer" && method == fasthttp.MethodPost:
			h.CheckAnswer(ctx)
		case len(parts) == 3 && parts[2] == "timeout" && method == fasthttp.MethodPost:
			h.HandleTimeout(ctx)
		default:
			serve404(ctx)
		}
		return
	}

	switch {
	case route == "open-admin" && method == fasthttp.MethodPost:
		h.OpenAdminPanel(ctx)
	case route == "close-window" && method == fasthttp.MethodPost:
		h.CloseWindow(ctx)
	case route == "exit" && method == fasthttp.MethodPost:
		h.Exit(ctx)
	case route == "reset" && method == fasthttp.MethodPost:
		h.ResetGame(ctx)
	case route == "restart" && method == fasthttp.MethodPost:
		h.RestartGame(ctx)
	case route == "spin-wheel" && method == fasthttp.MethodPost:
		h.SpinWheel(ctx)
	case route == "start-game" && method == fasthttp.MethodPost:
		h.StartGame(ctx)
	case route == "switch-team" && method == fasthttp.MethodPost:
		h.SwitchTeam(ctx)
	case route == "game-state" && method == fasthttp.MethodGet:
		h.GetGameState(ctx)
	case route == "settings" && method == fasthttp.MethodGet:
		h.GetSettings(ctx)
	default:
		serve404(ctx)
	}
}

// serveWS registers a display connection. The display only listens; anything it sends
// is discarded until it disconnects.
func (rt *Router) serveWS(ctx *fasthttp.RequestCtx) {
	role, ok := websocketHub.ParseRole(string(ctx.QueryArgs().Peek("role")))
	if !ok {
		respondWithError(ctx, fasthttp.StatusBadRequest, "role must be player or admin")
		return
	}

	err := upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
		client := websocketHub.NewClient(ws, role)
		rt.hub.Register(client)
		defer rt.hub.Unregister(client)

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				log.Debug().Err(err).Str("id", client.ID).Msg("display read loop ended")
				return
			}
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ error upgrading to WebSocket")
	}
}

// healthCheck maneja GET /api/health
func (rt *Router) healthCheck(ctx *fasthttp.RequestCtx) {
	data := map[string]interface{}{
		"status":  "healthy",
		"players": rt.hub.Count(websocketHub.RolePlayer),
		"admins":  rt.hub.Count(websocketHub.RoleAdmin),
		"redis":   "disabled",
	}
	if rt.health != nil {
		if err := rt.health.HealthCheck(ctx); err != nil {
			respondWithError(ctx, fasthttp.StatusServiceUnavailable, "Service unavailable: "+err.Error())
			return
		}
		data["redis"] = "connected"
	}
	respondWithSuccess(ctx, data, "Service is healthy")
}

func (rt *Router) serveFile(ctx *fasthttp.RequestCtx, filename string) {
	filePath := filepath.Join(rt.webDir, filename)

	if _, err := os.Stat(filePath); err != nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBodyString("<!DOCTYPE html><html><head><title>Not found</title></head><body>" +
			"<h1>⚠️ " + filename + " not found</h1><p>Check the --web-dir setting.</p></body></html>")
		return
	}

	ctx.SetContentType("text/html; charset=utf-8")
	fasthttp.ServeFile(ctx, filePath)
}

func serve404(ctx *fasthttp.RequestCtx) {
	respondWithError(ctx, fasthttp.StatusNotFound, "Route not found")
}
