package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/backsoul/trivia/pkg/services"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// respondWithJSON envía una respuesta JSON
func respondWithJSON(ctx *fasthttp.RequestCtx, statusCode int, response interface{}) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.SetStatusCode(statusCode)

	jsonData, err := json.Marshal(response)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"success": false, "error": "failed to serialize response"}`)
		return
	}

	ctx.SetBody(jsonData)
}

// respondWithError envía una respuesta de error
func respondWithError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	respondWithJSON(ctx, statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithSuccess envía una respuesta exitosa
func respondWithSuccess(ctx *fasthttp.RequestCtx, data interface{}, message string) {
	respondWithJSON(ctx, fasthttp.StatusOK, models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondWithServiceError maps a domain error to its status. Unknown errors are logged
// and hidden behind a generic message.
func respondWithServiceError(ctx *fasthttp.RequestCtx, err error) {
	status := statusFor(err)
	if status == fasthttp.StatusInternalServerError {
		log.Error().Err(err).Str("path", string(ctx.Path())).Msg("❌ request failed")
		respondWithError(ctx, status, "Internal server error")
		return
	}
	respondWithError(ctx, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fasthttp.StatusBadRequest
	case errors.Is(err, services.ErrState):
		return fasthttp.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		return fasthttp.StatusNotFound
	default:
		return fasthttp.StatusInternalServerError
	}
}

// decodeBody parses a JSON body into v. An empty body leaves v untouched.
func decodeBody(ctx *fasthttp.RequestCtx, v interface{}) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// pathInt reads an integer path parameter stored by the router.
func pathInt(ctx *fasthttp.RequestCtx, name string) (int, bool) {
	raw, _ := ctx.UserValue(name).(string)
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return n, true
}
