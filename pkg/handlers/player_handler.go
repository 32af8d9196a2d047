package handlers

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/backsoul/trivia/pkg/services"
	websocketHub "github.com/backsoul/trivia/pkg/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// PlayerHandler maneja las peticiones de la pantalla de juego
type PlayerHandler struct {
	engine   *services.GameEngine
	displays DisplayController
	password string
}

func NewPlayerHandler(engine *services.GameEngine, displays DisplayController, password string) *PlayerHandler {
	return &PlayerHandler{
		engine:   engine,
		displays: displays,
		password: password,
	}
}

// OpenAdminPanel maneja POST /api/player/open-admin
func (h *PlayerHandler) OpenAdminPanel(ctx *fasthttp.RequestCtx) {
	var req models.PasswordRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		respondWithError(ctx, fasthttp.StatusUnauthorized, "Invalid password")
		return
	}
	openDisplay(ctx, h.displays, websocketHub.RoleAdmin)
}

// CloseWindow maneja POST /api/player/close-window
func (h *PlayerHandler) CloseWindow(ctx *fasthttp.RequestCtx) {
	err := h.displays.Close(ctx, websocketHub.RolePlayer)
	if err != nil && !errors.Is(err, websocketHub.ErrNoDisplay) {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, nil, "Window closed")
}

// Exit maneja POST /api/player/exit
func (h *PlayerHandler) Exit(ctx *fasthttp.RequestCtx) {
	log.Warn().Msg("🛑 exit requested from player display")
	respondWithSuccess(ctx, nil, "Shutting down")
	h.displays.Exit(ctx)
}

// ResetGame maneja POST /api/player/reset
func (h *PlayerHandler) ResetGame(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.engine.Reset(services.OriginPlayer), "Game reset!")
}

// RestartGame maneja POST /api/player/restart
func (h *PlayerHandler) RestartGame(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.engine.RestartGame(), "Game restarted!")
}

// SpinWheel maneja POST /api/player/spin-wheel
func (h *PlayerHandler) SpinWheel(ctx *fasthttp.RequestCtx) {
	res, err := h.engine.SpinWheel()
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, res, fmt.Sprintf("%s starts", res.TeamName))
}

// StartGame maneja POST /api/player/start-game
func (h *PlayerHandler) StartGame(ctx *fasthttp.RequestCtx) {
	state, err := h.engine.StartGame(services.OriginPlayer)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, state, "Game started")
}

// GetQuestion maneja GET /api/player/questions/{index}
func (h *PlayerHandler) GetQuestion(ctx *fasthttp.RequestCtx) {
	index, ok := pathInt(ctx, "index")
	if !ok {
		return
	}

	prompt, err := h.engine.GetQuestion(index)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, prompt, "")
}

// CheckAnswer maneja POST /api/player/questions/{index}/answer
func (h *PlayerHandler) CheckAnswer(ctx *fasthttp.RequestCtx) {
	index, ok := pathInt(ctx, "index")
	if !ok {
		return
	}
	var req models.AnswerRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if req.SelectedOption == nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "selectedOption is required")
		return
	}

	res, err := h.engine.CheckAnswer(index, *req.SelectedOption)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, res, "")
}

// HandleTimeout maneja POST /api/player/questions/{index}/timeout
func (h *PlayerHandler) HandleTimeout(ctx *fasthttp.RequestCtx) {
	index, ok := pathInt(ctx, "index")
	if !ok {
		return
	}

	res, err := h.engine.HandleTimeout(index)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, res, "")
}

// SwitchTeam maneja POST /api/player/switch-team
func (h *PlayerHandler) SwitchTeam(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.engine.SwitchTeam(), "")
}

// GetGameState maneja GET /api/player/game-state
func (h *PlayerHandler) GetGameState(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.engine.GameState(), "")
}

// GetSettings maneja GET /api/player/settings
func (h *PlayerHandler) GetSettings(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.engine.Settings(), "")
}
