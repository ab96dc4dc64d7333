// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

// Package lmserver is an in-memory reference implementation of the LMS
// endpoints the offline engine consumes. It exists for the demo binary and
// integration tests; a production deployment talks to the real LMS instead.
package lmserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shann2345/go-learnsync/learnsync"
)

// Server holds the in-memory state of the reference LMS.
type Server struct {
	jwt    *learnsync.JWTAuth
	logger *slog.Logger

	mu        sync.Mutex
	clockSkew time.Duration
	quizAcks  map[string]learnsync.SubmissionAck // keyed by attempt_id
	subAcks   map[string]learnsync.SubmissionAck // keyed by submission_id
	content   map[string]learnsync.ContentResponse
	failNext  int
}

// New creates a reference server validating bearer tokens signed with the
// given secret.
func New(jwtSecret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		jwt:      learnsync.NewJWTAuth(jwtSecret),
		logger:   logger,
		quizAcks: make(map[string]learnsync.SubmissionAck),
		subAcks:  make(map[string]learnsync.SubmissionAck),
		content:  make(map[string]learnsync.ContentResponse),
	}
}

// Handler returns the HTTP handler for all LMS endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /server-time", s.jwt.Middleware(http.HandlerFunc(s.handleServerTime)))
	mux.Handle("POST /quiz-submissions", s.jwt.Middleware(http.HandlerFunc(s.handleQuizSubmission)))
	mux.Handle("POST /assignment-submissions", s.jwt.Middleware(http.HandlerFunc(s.handleAssignmentSubmission)))
	mux.Handle("GET /courses/{id}", s.jwt.Middleware(s.contentHandler(learnsync.KindCourse)))
	mux.Handle("GET /materials/{id}", s.jwt.Middleware(s.contentHandler(learnsync.KindMaterial)))
	mux.Handle("GET /assessments/{id}", s.jwt.Middleware(s.contentHandler(learnsync.KindAssessment)))
	return mux
}

// SetClockSkew shifts the server clock reported by /server-time. Test hook.
func (s *Server) SetClockSkew(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clockSkew = d
}

// FailNext makes the next n submission uploads answer 503. Test hook.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// SeedContent registers a content item served by the content endpoints.
func (s *Server) SeedContent(item learnsync.ContentResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[item.Kind+"/"+item.ID] = item
}

// QuizAttemptCount reports how many distinct quiz attempts were stored.
func (s *Server) QuizAttemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quizAcks)
}

// SubmissionCount reports how many distinct file submissions were stored.
func (s *Server) SubmissionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subAcks)
}
