// Package session provides the storage port for per-learner session
// state and its Redis and in-memory implementations. Values are stored
// as JSON under keys scoped by session id; the whole keyspace for a
// session expires together with the learner's token.
package session

import (
	"context"
	"fmt"
)

// Storage keys for one learner session. Week-scoped keys are built by
// the Key* helpers below.
const (
	KeyCourseData       = "courseData"
	KeyCurrentWeek      = "currentWeek"
	KeyActiveSection    = "activeSection"
	KeyQuizResults      = "sessionQuizResults"
	KeyCompletedLessons = "completedLessons"
	KeyChatState        = "chatState"
	KeySessionActive    = "currentSessionActive"
)

// KeyWeekContent returns the cache key for one week's rendered
// content.
func KeyWeekContent(week int) string {
	return fmt.Sprintf("weekContent:%d", week)
}

// KeyQuizResult returns the key holding the graded result for one
// week.
func KeyQuizResult(week int) string {
	return fmt.Sprintf("sessionQuizResult:week%d", week)
}

// KeyQuizSession returns the key holding the active quiz attempt for
// one week.
func KeyQuizSession(week int) string {
	return fmt.Sprintf("quizSession:week%d", week)
}

// KeyStudyTips returns the cache key for one week's study tips.
func KeyStudyTips(week int) string {
	return fmt.Sprintf("studyTips:week%d", week)
}

// Store is the persistence port for session-scoped state. Services
// never touch the backing store directly so tests can substitute the
// in-memory implementation.
type Store interface {
	// Get decodes the value under key into dest. The boolean reports
	// whether the key existed.
	Get(ctx context.Context, sessionID, key string, dest interface{}) (bool, error)
	// Set stores value under key and refreshes the key's TTL.
	Set(ctx context.Context, sessionID, key string, value interface{}) error
	// Delete removes the given keys for the session.
	Delete(ctx context.Context, sessionID string, keys ...string) error
	// Clear removes every key belonging to the session.
	Clear(ctx context.Context, sessionID string) error
}
