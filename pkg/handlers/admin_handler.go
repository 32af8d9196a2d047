package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/backsoul/trivia/pkg/services"
	websocketHub "github.com/backsoul/trivia/pkg/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// AdminPasswordHeader carries the shared secret on every admin route.
const AdminPasswordHeader = "X-Admin-Password"

// DisplayController drives the display windows and the process lifetime.
type DisplayController interface {
	Open(ctx context.Context, role websocketHub.Role) error
	Close(ctx context.Context, role websocketHub.Role) error
	Exit(ctx context.Context)
}

// AdminHandler maneja las peticiones del panel de administración
type AdminHandler struct {
	engine   *services.GameEngine
	displays DisplayController
	password string
}

func NewAdminHandler(engine *services.GameEngine, displays DisplayController, password string) *AdminHandler {
	return &AdminHandler{
		engine:   engine,
		displays: displays,
		password: password,
	}
}

func (h *AdminHandler) checkPassword(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(h.password)) == 1
}

// Authorized reports whether the request carries the admin password header.
func (h *AdminHandler) Authorized(ctx *fasthttp.RequestCtx) bool {
	return h.checkPassword(string(ctx.Request.Header.Peek(AdminPasswordHeader)))
}

// VerifyPassword maneja POST /api/admin/verify-password
func (h *AdminHandler) VerifyPassword(ctx *fasthttp.RequestCtx) {
	var req models.PasswordRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if !h.checkPassword(req.Password) {
		respondWithError(ctx, fasthttp.StatusUnauthorized, "Invalid password")
		return
	}
	respondWithSuccess(ctx, nil, "Password verified")
}

// ListQuestions maneja GET /api/admin/questions
func (h *AdminHandler) ListQuestions(ctx *fasthttp.RequestCtx) {
	questions := h.engine.ListQuestions()
	respondWithSuccess(ctx, models.QuestionResponse{
		Questions: questions,
		Count:     len(questions),
	}, "Questions loaded")
}

// AddQuestion maneja POST /api/admin/questions
func (h *AdminHandler) AddQuestion(ctx *fasthttp.RequestCtx) {
	var req models.QuestionRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if req.Correct == nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "Invalid correct option index")
		return
	}

	change, err := h.engine.AddQuestion(req.Question, req.Options, *req.Correct)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, change, "Question added!")
}

// EditQuestion maneja PUT /api/admin/questions/{id}
func (h *AdminHandler) EditQuestion(ctx *fasthttp.RequestCtx) {
	id, ok := pathInt(ctx, "id")
	if !ok {
		return
	}
	var req models.QuestionRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if req.Correct == nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "Invalid correct option index")
		return
	}

	if err := h.engine.EditQuestion(id, req.Question, req.Options, *req.Correct); err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, nil, "Question updated!")
}

// DeleteQuestion maneja DELETE /api/admin/questions/{id}
func (h *AdminHandler) DeleteQuestion(ctx *fasthttp.RequestCtx) {
	id, ok := pathInt(ctx, "id")
	if !ok {
		return
	}

	total, err := h.engine.DeleteQuestion(id)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, models.ImportResponse{Total: total}, "Question deleted!")
}

// ExportQuestions maneja GET /api/admin/questions/export
func (h *AdminHandler) ExportQuestions(ctx *fasthttp.RequestCtx) {
	data, err := h.engine.ExportQuestions()
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, map[string]interface{}{"data": data}, "Questions exported")
}

// ImportQuestions maneja POST /api/admin/questions/import con el JSON crudo en el cuerpo
func (h *AdminHandler) ImportQuestions(ctx *fasthttp.RequestCtx) {
	total, err := h.engine.ImportQuestions(string(ctx.PostBody()))
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, models.ImportResponse{Total: total}, fmt.Sprintf("Imported %d questions", total))
}

// GetSettings maneja GET /api/admin/settings
func (h *AdminHandler) GetSettings(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.engine.Settings(), "Settings loaded")
}

// UpdateSettings maneja POST /api/admin/settings
func (h *AdminHandler) UpdateSettings(ctx *fasthttp.RequestCtx) {
	var patch models.SettingsPatch
	if !decodeBody(ctx, &patch) {
		return
	}

	settings, err := h.engine.UpdateSettings(patch)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, settings, "Settings updated!")
}

// GetGameState maneja GET /api/admin/game-state
func (h *AdminHandler) GetGameState(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.engine.GameState(), "Game state loaded")
}

// ForceSpinWheel maneja POST /api/admin/spin-wheel
func (h *AdminHandler) ForceSpinWheel(ctx *fasthttp.RequestCtx) {
	var req models.TeamRequest
	if !decodeBody(ctx, &req) {
		return
	}

	res, err := h.engine.ForceSpinWheel(req.Team)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, res, fmt.Sprintf("%s starts", res.TeamName))
}

// ForceStartGame maneja POST /api/admin/start-game
func (h *AdminHandler) ForceStartGame(ctx *fasthttp.RequestCtx) {
	state, err := h.engine.StartGame(services.OriginAdmin)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, state, "Game started")
}

// SetScore maneja POST /api/admin/score
func (h *AdminHandler) SetScore(ctx *fasthttp.RequestCtx) {
	var req models.ScoreRequest
	if !decodeBody(ctx, &req) {
		return
	}
	if req.Team == nil || req.Score == nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "Team and score are required")
		return
	}

	state, err := h.engine.ManualSetScore(*req.Team, *req.Score)
	if err != nil {
		respondWithServiceError(ctx, err)
		return
	}
	respondWithSuccess(ctx, state, "Score updated!")
}

// ResetGame maneja POST /api/admin/reset
func (h *AdminHandler) ResetGame(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.engine.Reset(services.OriginAdmin), "Game reset!")
}

// OpenPlayerWindow maneja POST /api/admin/player-window
func (h *AdminHandler) OpenPlayerWindow(ctx *fasthttp.RequestCtx) {
	openDisplay(ctx, h.displays, websocketHub.RolePlayer)
}

// Exit maneja POST /api/admin/exit
func (h *AdminHandler) Exit(ctx *fasthttp.RequestCtx) {
	log.Warn().Msg("🛑 exit requested from admin console")
	respondWithSuccess(ctx, nil, "Shutting down")
	h.displays.Exit(ctx)
}

// openDisplay asks the connected display of role to come forward. With none connected
// the call still succeeds and tells the operator where to point a browser.
func openDisplay(ctx *fasthttp.RequestCtx, displays DisplayController, role websocketHub.Role) {
	err := displays.Open(ctx, role)
	switch {
	case err == nil:
		respondWithSuccess(ctx, map[string]interface{}{"delivered": true}, fmt.Sprintf("%s display notified", role))
	case errors.Is(err, websocketHub.ErrNoDisplay):
		respondWithSuccess(ctx, map[string]interface{}{"delivered": false, "path": pagePath(role)}, fmt.Sprintf("No %s display connected", role))
	default:
		respondWithServiceError(ctx, err)
	}
}

func pagePath(role websocketHub.Role) string {
	if role == websocketHub.RoleAdmin {
		return "/admin"
	}
	return "/"
}
