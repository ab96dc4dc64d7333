// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsync

// Content kind constants for cached items
const (
	KindCourse     = "course"
	KindMaterial   = "material"
	KindAssessment = "assessment"
)

// Pending work kind constants
const (
	PendingSubmission  = "submission"
	PendingQuizAttempt = "quiz_attempt"
)

// Skip reason constants for pending rows that are permanently excluded from
// reconciliation (the row itself is kept so no student work is lost)
const (
	SkipMissingFile  = "missing_file"
	SkipMissingTimes = "missing_times"
	SkipBadPayload   = "bad_payload"
)
