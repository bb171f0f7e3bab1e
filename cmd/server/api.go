package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/examforge/arena/internal/arena"
	"github.com/examforge/arena/internal/leaderboard"
	"github.com/examforge/arena/internal/predictor"
	"github.com/examforge/arena/internal/qbank"
)

const maxImportBytes = 10 << 20

// server bundles the engines behind the HTTP API.
type server struct {
	engine  *arena.Engine
	boards  *leaderboard.Engine
	predict *predictor.Service
	bank    qbank.Store
	ready   func(r *http.Request) error
}

// newMux creates the HTTP router.
func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/arena/daily/start", s.startHandler(arena.AttemptDaily))
	mux.HandleFunc("POST /api/arena/mock/start", s.startHandler(arena.AttemptMock))
	mux.HandleFunc("POST /api/arena/boss/start", s.startHandler(arena.AttemptBoss))
	mux.HandleFunc("POST /api/arena/attempts/{id}/submit", s.handleSubmit)

	mux.HandleFunc("GET /api/readiness", s.handleReadiness)
	mux.HandleFunc("GET /api/profile/{student_id}", s.handleProfile)
	mux.HandleFunc("GET /api/revision-plan/latest", s.handleLatestPlan)
	mux.HandleFunc("GET /api/prediction", s.handlePrediction)

	mux.HandleFunc("GET /api/leaderboard/class/{id}", s.handleClassBoard)
	mux.HandleFunc("GET /api/leaderboard/class/{id}/export", s.handleClassExport)
	mux.HandleFunc("GET /api/leaderboard/global", s.handleGlobalBoard)

	mux.HandleFunc("POST /api/questions/import", s.handleImport)
	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type startRequest struct {
	StudentID string `json:"student_id"`
	Exam      string `json:"exam"`
	Subject   string `json:"subject"`
}

type startResponse struct {
	Attempt   *arena.Attempt   `json:"attempt"`
	Questions []playerQuestion `json:"questions"`
	TimeLimit int              `json:"time_limit_seconds"`
}

// playerQuestion is a Question without the answer key.
type playerQuestion struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Options    map[string]string `json:"options"`
	TopicTag   string            `json:"topic_tag,omitempty"`
	Difficulty string            `json:"difficulty"`
}

func (s *server) startHandler(typ arena.AttemptType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.StudentID == "" {
			writeError(w, http.StatusBadRequest, "student_id is required")
			return
		}

		exam := qbank.Exam(req.Exam)
		var (
			attempt   *arena.Attempt
			questions []qbank.Question
			err       error
		)
		switch typ {
		case arena.AttemptDaily:
			attempt, questions, err = s.engine.StartDaily(r.Context(), req.StudentID, exam, req.Subject)
		case arena.AttemptMock:
			attempt, questions, err = s.engine.StartMock(r.Context(), req.StudentID, exam, req.Subject)
		default:
			attempt, questions, err = s.engine.StartBossFight(r.Context(), req.StudentID, exam, req.Subject)
		}
		if err != nil {
			writeEngineError(w, err)
			return
		}

		out := make([]playerQuestion, len(questions))
		for i, q := range questions {
			out[i] = playerQuestion{
				ID:   q.ID,
				Text: q.Text,
				Options: map[string]string{
					"A": q.OptionA, "B": q.OptionB, "C": q.OptionC, "D": q.OptionD,
				},
				TopicTag:   q.TopicTag,
				Difficulty: string(q.Difficulty),
			}
		}
		writeJSON(w, http.StatusCreated, startResponse{
			Attempt:   attempt,
			Questions: out,
			TimeLimit: arena.TimeLimit(typ),
		})
	}
}

type submitRequest struct {
	Answers []arena.SubmittedAnswer `json:"answers"`
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.engine.CompleteAttempt(r.Context(), r.PathValue("id"), req.Answers)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}
	exam := qbank.Exam(r.URL.Query().Get("exam"))
	subject := r.URL.Query().Get("subject")

	score, err := s.engine.Readiness(r.Context(), studentID, exam, subject)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"student_id":      studentID,
		"exam":            exam,
		"subject":         subject,
		"readiness_score": score,
	})
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	rank, err := s.engine.Profile(r.Context(), r.PathValue("student_id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rank":          rank,
		"level":         arena.Level(rank.XPTotal),
		"next_level_xp": arena.NextLevelXP(arena.Level(rank.XPTotal)),
	})
}

func (s *server) handleLatestPlan(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}
	plan, err := s.engine.LatestRevisionPlan(r.Context(), studentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "no revision plan yet")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}
	p, err := s.predict.Predict(r.Context(), studentID,
		qbank.Exam(r.URL.Query().Get("exam")), r.URL.Query().Get("subject"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// limitParam reads an optional positive ?limit= query value.
func limitParam(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return n, nil
}

func (s *server) handleClassBoard(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.boards.GetClassLeaderboard(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (s *server) handleClassExport(w http.ResponseWriter, r *http.Request) {
	classID := r.PathValue("id")
	data, err := s.boards.ExportClassXLSX(r.Context(), classID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard-`+classID+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *server) handleGlobalBoard(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.boards.GetGlobalLeaderboard(r.Context(), limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body failed")
		return
	}
	n, err := qbank.ImportJSON(r.Context(), s.bank, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// writeEngineError maps engine sentinel errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, arena.ErrAttemptNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, arena.ErrAttemptClosed),
		errors.Is(err, arena.ErrDailyAlreadyDone),
		errors.Is(err, arena.ErrMockLimitReached),
		errors.Is(err, arena.ErrBossLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, arena.ErrNoAnswers),
		errors.Is(err, arena.ErrAnswerMismatch),
		errors.Is(err, arena.ErrUnknownQuestion),
		errors.Is(err, arena.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
