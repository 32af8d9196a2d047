package models

// QuestionRequest cuerpo para crear o editar una pregunta
type QuestionRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  *int     `json:"correct"`
}

// PasswordRequest cuerpo para verificar la contraseña del panel
type PasswordRequest struct {
	Password string `json:"password"`
}

type TeamRequest struct {
	Team int `json:"team"`
}

type ScoreRequest struct {
	Team  *int `json:"team"`
	Score *int `json:"score"`
}

type AnswerRequest struct {
	SelectedOption *int `json:"selectedOption"`
}

// ImportResponse resumen de una importación o borrado
type ImportResponse struct {
	Total int `json:"total"`
}
