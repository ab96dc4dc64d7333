// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package lmserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shann2345/go-learnsync/learnsync"
)

func (s *Server) handleServerTime(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	skew := s.clockSkew
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, learnsync.ServerTimeResponse{
		Timestamp: time.Now().Add(skew).UTC(),
	})
}

func (s *Server) handleQuizSubmission(w http.ResponseWriter, r *http.Request) {
	var up learnsync.QuizAttemptUpload
	if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse quiz attempt")
		return
	}
	if up.AttemptID == "" || up.AssessmentID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "attempt_id and assessment_id are required")
		return
	}
	if up.StartTime.IsZero() || up.EndTime.IsZero() {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "start_time and end_time are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		s.writeError(w, http.StatusServiceUnavailable, "unavailable", "Temporarily unable to accept uploads")
		return
	}

	// Idempotent per attempt: a replay returns the original acknowledgment
	// instead of storing a second submission.
	if ack, ok := s.quizAcks[up.AttemptID]; ok {
		ack.Duplicate = true
		writeJSON(w, http.StatusOK, ack)
		return
	}

	ack := learnsync.SubmissionAck{Accepted: true, ID: up.AttemptID}
	s.quizAcks[up.AttemptID] = ack
	s.logger.Info("stored quiz attempt",
		"attempt", up.AttemptID, "assessment", up.AssessmentID, "answers", len(up.Answers))
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) handleAssignmentSubmission(w http.ResponseWriter, r *http.Request) {
	var up learnsync.SubmissionUpload
	if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse submission")
		return
	}
	if up.SubmissionID == "" || up.AssessmentID == "" || up.OriginalFilename == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "submission_id, assessment_id and original_filename are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		s.writeError(w, http.StatusServiceUnavailable, "unavailable", "Temporarily unable to accept uploads")
		return
	}

	if ack, ok := s.subAcks[up.SubmissionID]; ok {
		ack.Duplicate = true
		writeJSON(w, http.StatusOK, ack)
		return
	}

	ack := learnsync.SubmissionAck{Accepted: true, ID: up.SubmissionID}
	s.subAcks[up.SubmissionID] = ack
	s.logger.Info("stored assignment submission",
		"submission", up.SubmissionID, "assessment", up.AssessmentID,
		"filename", up.OriginalFilename, "bytes", len(up.Content))
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) contentHandler(kind string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		s.mu.Lock()
		item, ok := s.content[kind+"/"+id]
		s.mu.Unlock()

		if !ok {
			s.writeError(w, http.StatusNotFound, "not_found", kind+" "+id+" does not exist")
			return
		}
		writeJSON(w, http.StatusOK, item)
	})
}

func (s *Server) writeError(w http.ResponseWriter, code int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(learnsync.ErrorResponse{Error: errType, Message: message}); err != nil {
		s.logger.Error("failed to encode error response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
