package kernel

import (
	"net/http"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

type promptResponse struct {
	Prompt string `json:"prompt"`
}

type imagesResponse struct {
	Images []string `json:"images"`
	Count  int      `json:"count"`
}

// POST /v1/prompts/enhance
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req domain.PromptSettings
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	prompt, err := s.facade.EnhancePrompt(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{Prompt: prompt})
}

// POST /v1/prompts/from-image {"image":"data:image/png;base64,..."}
func (s *Server) handlePromptFromImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	image, err := domain.ParseDataURI(req.Image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	prompt, err := s.facade.GeneratePromptFromImage(r.Context(), image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{Prompt: prompt})
}

// POST /v1/prompts/refine {"text":"..."}
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	prompt, err := s.facade.RefineEditPrompt(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{Prompt: prompt})
}

// POST /v1/images/generate {"prompt":"...","count":2,"aspectRatio":"16:9"}
func (s *Server) handleGenerateImages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt      string `json:"prompt"`
		Count       int    `json:"count"`
		AspectRatio string `json:"aspectRatio"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	aspect, err := domain.ParseAspectRatio(req.AspectRatio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	images, err := s.facade.GenerateImages(r.Context(), req.Prompt, req.Count, aspect)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imagesResponse{Images: images, Count: len(images)})
}

// POST /v1/images/edit {"instruction":"...","image":"data:...","aspectRatio":"1:1"}
func (s *Server) handleEditImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instruction string `json:"instruction"`
		Image       string `json:"image"`
		AspectRatio string `json:"aspectRatio"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	image, err := domain.ParseDataURI(req.Image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	aspect, err := domain.ParseAspectRatio(req.AspectRatio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	images, err := s.facade.EditImage(r.Context(), req.Instruction, image, aspect)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imagesResponse{Images: images, Count: len(images)})
}
