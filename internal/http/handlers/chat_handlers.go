// Package handlers exposes the registration workflow over a small JSON chat
// API. The transport stays thin: it decodes the user's message, runs one
// workflow step, and renders the resulting prompt with its button labels.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/svaboev-coder/Tornado-cooking/internal/http/response"
	"github.com/svaboev-coder/Tornado-cooking/internal/workflow"
)

type Handlers struct {
	engine *workflow.Engine
	admin  *AdminHandlers
}

func New(engine *workflow.Engine, admin *AdminHandlers) *Handlers {
	return &Handlers{engine: engine, admin: admin}
}

func (h *Handlers) Admin() *AdminHandlers { return h.admin }

type startRequest struct {
	UserID int64 `json:"user_id"`
}

type messageRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// StartRegistration begins a new registration workflow for a user.
func (h *Handlers) StartRegistration(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if req.UserID == 0 {
		response.BadRequest(w, "user_id is required")
		return
	}

	res := h.engine.Start(r.Context(), req.UserID)
	response.WriteJSON(w, http.StatusOK, res)
}

// ProcessMessage feeds one chat message into the user's workflow. The
// workflow outcome, including validation and infrastructure problems, is a
// prompt for the user, so the HTTP status is 200 whenever the message itself
// was well-formed.
func (h *Handlers) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if req.UserID == 0 {
		response.BadRequest(w, "user_id is required")
		return
	}

	// Top-level escape hatch, honored regardless of workflow position.
	if req.Text == "/cancel" {
		h.engine.Reset(req.UserID)
		response.WriteJSON(w, http.StatusOK, workflow.StepResult{
			Kind: workflow.KindCancel,
			Text: "❌ Операция отменена.",
		})
		return
	}

	res := h.engine.ProcessInput(r.Context(), req.UserID, req.Text)
	response.WriteJSON(w, http.StatusOK, res)
}
