package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/render"
	"github.com/conorfennell/knoldeck/internal/sm2"
)

type createDeckRequest struct {
	Name string `json:"name" validate:"required"`
}

type noteRequest struct {
	Template string        `json:"template"`
	Fields   domain.Fields `json:"fields" validate:"required,min=1"`
}

type reviewRequest struct {
	Score string `json:"score" validate:"required"`
}

type noteResponse struct {
	domain.Note
	Fields domain.Fields `json:"fields"`
}

// handleListDecks handles GET /decks.
func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := s.collection.Decks()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if decks == nil {
		decks = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

// handleCreateDeck handles POST /decks.
func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	var req createDeckRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.collection.CreateDeck(req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("deck created", "deck", req.Name)
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// handleListNotes handles GET /decks/{deck}/notes.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.collection.Notes(chi.URLParam(r, "deck"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// handleCreateNote handles POST /decks/{deck}/notes.
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.collection.CreateNote(chi.URLParam(r, "deck"), req.Template, req.Fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("note created", "deck", note.DeckID, "note", note.NoteID)
	writeJSON(w, http.StatusCreated, noteResponse{Note: note, Fields: req.Fields})
}

// handleGetNote handles GET /decks/{deck}/notes/{note}.
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, fields, err := s.readNote(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Note: note, Fields: fields})
}

// handleUpdateNote handles PUT /decks/{deck}/notes/{note}.
func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.collection.FindNote(chi.URLParam(r, "deck"), chi.URLParam(r, "note"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.collection.UpdateNote(note, req.Fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Note: note, Fields: req.Fields})
}

// handleFront handles GET /decks/{deck}/notes/{note}/front.
func (s *Server) handleFront(w http.ResponseWriter, r *http.Request) {
	s.renderSide(w, r, render.Front)
}

// handleBack handles GET /decks/{deck}/notes/{note}/back.
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.renderSide(w, r, render.Back)
}

func (s *Server) renderSide(w http.ResponseWriter, r *http.Request, side func(domain.Fields) (string, error)) {
	_, fields, err := s.readNote(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	html, err := side(fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// handleDue handles GET /decks/{deck}/due.
func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	due, err := s.reviews.Due(r.Context(), chi.URLParam(r, "deck"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if due == nil {
		due = []domain.DueCard{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": due})
}

// handleDueAll handles GET /due.
func (s *Server) handleDueAll(w http.ResponseWriter, r *http.Request) {
	due, err := s.reviews.DueAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": due})
}

// handleReview handles POST /decks/{deck}/notes/{note}/review.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	score, err := sm2.ParseScore(req.Score)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.reviews.Review(r.Context(), chi.URLParam(r, "deck"), chi.URLParam(r, "note"), score)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handlePreview handles GET /decks/{deck}/notes/{note}/preview.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	preview, err := s.reviews.Preview(r.Context(), chi.URLParam(r, "deck"), chi.URLParam(r, "note"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleHistory handles GET /decks/{deck}/notes/{note}/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.reviews.History(r.Context(), chi.URLParam(r, "deck"), chi.URLParam(r, "note"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []domain.ReviewLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": history})
}

// handleSync handles POST /sync. It runs in the foreground so the caller
// gets the report.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.sync(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) readNote(r *http.Request) (domain.Note, domain.Fields, error) {
	note, err := s.collection.FindNote(chi.URLParam(r, "deck"), chi.URLParam(r, "note"))
	if err != nil {
		return domain.Note{}, nil, err
	}
	fields, err := s.collection.ReadNote(note)
	if err != nil {
		return domain.Note{}, nil, err
	}
	return note, fields, nil
}
