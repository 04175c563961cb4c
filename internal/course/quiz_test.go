package course

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQuizSessionTimeRemaining(t *testing.T) {
	started := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	session := QuizSession{
		WeekNumber:       1,
		StartedAt:        started,
		TimeLimitMinutes: 30,
		Status:           QuizStatusActive,
	}

	require.Equal(t, 30*60, session.TimeRemaining(started))
	require.Equal(t, 10*60, session.TimeRemaining(started.Add(20*time.Minute)))
	require.Equal(t, 0, session.TimeRemaining(started.Add(31*time.Minute)))
}

func TestQuizSessionExpired(t *testing.T) {
	started := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	session := QuizSession{StartedAt: started, TimeLimitMinutes: 30}

	require.False(t, session.Expired(started.Add(29*time.Minute)))
	require.False(t, session.Expired(started.Add(30*time.Minute)))
	require.True(t, session.Expired(started.Add(30*time.Minute+time.Second)))
}

func TestQuizResultPassedIsStrict(t *testing.T) {
	require.False(t, QuizResult{Results: QuizResultDetails{Percentage: 40}}.Passed(40))
	require.True(t, QuizResult{Results: QuizResultDetails{Percentage: 40.5}}.Passed(40))
	require.False(t, QuizResult{}.Passed(40))
}
