// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsync

import (
	"encoding/json"
	"time"
)

// REST/JSON models for the LMS server API consumed by the offline engine.
// The server owns these endpoints; the engine only needs the fields below.

// ServerTimeResponse is the body of GET /server-time.
type ServerTimeResponse struct {
	Timestamp time.Time `json:"timestamp"`
}

// QuizAnswer is a single question→answer pair inside an attempt.
type QuizAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// QuizAttemptUpload represents an offline-completed quiz attempt posted to
// POST /quiz-submissions. AttemptID is client-generated and makes the upload
// idempotent: replaying the same attempt must not create a second submission.
type QuizAttemptUpload struct {
	AttemptID    string       `json:"attempt_id"`
	AssessmentID string       `json:"assessment_id"`
	UserEmail    string       `json:"user_email"`
	Answers      []QuizAnswer `json:"answers"`
	StartTime    time.Time    `json:"start_time"`
	EndTime      time.Time    `json:"end_time"`
}

// SubmissionUpload represents an assignment file posted to
// POST /assignment-submissions. SubmissionID is client-generated and carries
// the same idempotency contract as QuizAttemptUpload.AttemptID.
type SubmissionUpload struct {
	SubmissionID     string    `json:"submission_id"`
	AssessmentID     string    `json:"assessment_id"`
	UserEmail        string    `json:"user_email"`
	OriginalFilename string    `json:"original_filename"`
	Content          []byte    `json:"content"` // base64 over the wire
	SubmittedAt      time.Time `json:"submitted_at"`
}

// SubmissionAck is the positive acknowledgment body returned by both
// submission endpoints. A pending row may be deleted locally only after a
// 2xx response whose Accepted field is true.
type SubmissionAck struct {
	Accepted  bool   `json:"accepted"`
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate,omitempty"` // replay of an already-stored upload
	Message   string `json:"message,omitempty"`
}

// ContentResponse is the body of GET /courses/{id}, /materials/{id} and
// /assessments/{id}. Payload is opaque to the engine and cached as-is.
type ContentResponse struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	AvailableAt   *time.Time      `json:"available_at,omitempty"`
	UnavailableAt *time.Time      `json:"unavailable_at,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
