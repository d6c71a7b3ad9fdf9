package controllers

import (
	"encoding/json"
	"net/http"
)

// Features reports which optional integrations were configured at startup.
type Features struct {
	LLM      bool   `json:"llm"`
	Provider string `json:"llm_provider,omitempty"`
	Calendar bool   `json:"calendar"`
	Export   bool   `json:"export"`
	Sessions string `json:"session_store"`
}

type HealthController struct {
	features Features
}

func NewHealthController(f Features) *HealthController {
	return &HealthController{features: f}
}

func (h *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct {
		Status   string   `json:"status"`
		Features Features `json:"features"`
	}{"ok", h.features})
}
