package course

import (
	"errors"
	"math"
)

// Progression errors surfaced to callers. Handlers map these onto
// HTTP status codes.
var (
	ErrWeekNotFound   = errors.New("week not found in course")
	ErrWeekLocked     = errors.New("week is locked")
	ErrUnknownSection = errors.New("unknown active section")
)

// State is the progression aggregate for one learner session: the
// cursor position, the completed lesson set and the stored quiz
// results. Week 1 / overview is the initial position.
type State struct {
	CurrentWeek      int                   `json:"current_week"`
	ActiveSection    string                `json:"active_section"`
	CompletedLessons map[string]bool       `json:"completed_lessons"`
	QuizResults      map[string]QuizResult `json:"quiz_results"`
}

// NewState returns an empty progression state positioned at week 1's
// overview.
func NewState() State {
	return State{
		CurrentWeek:      1,
		ActiveSection:    SectionOverview,
		CompletedLessons: map[string]bool{},
		QuizResults:      map[string]QuizResult{},
	}
}

// Reset wipes the state back to its initial value. Storage cleanup is
// the caller's job.
func (s *State) Reset() {
	*s = NewState()
}

// RecordQuizResult stores or overwrites the result for week. When the
// score clears the threshold it stamps the week's quiz_completed flag
// (which latches: a later failing retake does not clear it) and makes
// week+1 eligible for unlock. Returns whether the result passed.
func (s *State) RecordQuizResult(c *CourseData, week int, result QuizResult, threshold int) bool {
	if s.QuizResults == nil {
		s.QuizResults = map[string]QuizResult{}
	}
	result.WeekNumber = week
	s.QuizResults[WeekKey(week)] = result

	passed := result.Passed(threshold)
	if passed && c != nil {
		if w := c.Week(week); w != nil {
			w.QuizCompleted = true
		}
	}
	return passed
}

// RecordLessonCompletion adds a lesson to the completed set. The
// operation is idempotent; the return value reports whether the lesson
// was newly recorded.
func (s *State) RecordLessonCompletion(globalID string) bool {
	if s.CompletedLessons == nil {
		s.CompletedLessons = map[string]bool{}
	}
	if s.CompletedLessons[globalID] {
		return false
	}
	s.CompletedLessons[globalID] = true
	return true
}

// IsWeekUnlocked reports whether week n is navigable. Week 1 always
// is; week n>1 requires a stored result for week n-1 above the
// threshold.
func (s *State) IsWeekUnlocked(n, threshold int) bool {
	if n == 1 {
		return true
	}
	if n < 1 {
		return false
	}
	result, ok := s.QuizResults[WeekKey(n-1)]
	return ok && result.Passed(threshold)
}

// IsWeekCompleted reports whether every lesson of week n is in the
// completed set. Quiz completion is tracked separately and does not
// gate the week badge.
func (s *State) IsWeekCompleted(c *CourseData, n int) bool {
	w := c.Week(n)
	if w == nil {
		return false
	}
	for _, topic := range w.LessonTopics {
		if !s.CompletedLessons[GlobalLessonID(n, topic.ID)] {
			return false
		}
	}
	return true
}

// WeekState derives the display state for week n.
func (s *State) WeekState(c *CourseData, n, threshold int) string {
	if !s.IsWeekUnlocked(n, threshold) {
		return WeekLocked
	}
	if s.IsWeekCompleted(c, n) {
		return WeekCompleted
	}
	return WeekInProgress
}

// quizPassed resolves the pass flag for a week from the latched
// course flag or, failing that, the stored result. The latch keeps
// progress monotonic across a lower retake.
func (s *State) quizPassed(w *WeekSummary, threshold int) bool {
	if w.QuizCompleted {
		return true
	}
	result, ok := s.QuizResults[WeekKey(w.WeekNumber)]
	return ok && result.Passed(threshold)
}

// CourseComplete reports whether every week's quiz has a passing
// result.
func (s *State) CourseComplete(c *CourseData, threshold int) bool {
	if c == nil || len(c.Weeks) == 0 {
		return false
	}
	for i := range c.Weeks {
		if !s.quizPassed(&c.Weeks[i], threshold) {
			return false
		}
	}
	return true
}

// ProgressPct computes the aggregate completion percentage. Per week
// the denominator counts 1 overview + lessons + 1 resources when
// present + 1 quiz; the numerator counts the overview baseline,
// completed lessons and, once the quiz passes, the quiz point plus the
// resources point. Returns 0 for a course with no weeks and 100 once
// every lesson is completed and every quiz passed.
func ProgressPct(c *CourseData, completedLessons map[string]bool, quizResults map[string]QuizResult, threshold int) int {
	if c == nil || len(c.Weeks) == 0 {
		return 0
	}

	state := State{CompletedLessons: completedLessons, QuizResults: quizResults}

	var numerator, denominator float64
	for i := range c.Weeks {
		w := &c.Weeks[i]

		resources := 0
		if w.HasResources() {
			resources = 1
		}
		denominator += float64(1 + len(w.LessonTopics) + resources + 1)

		n := 1
		for _, topic := range w.LessonTopics {
			if completedLessons[GlobalLessonID(w.WeekNumber, topic.ID)] {
				n++
			}
		}
		if state.quizPassed(w, threshold) {
			n += 1 + resources
		}
		numerator += float64(n)
	}

	if denominator == 0 {
		return 0
	}
	return int(math.Round(100 * numerator / denominator))
}

// Progress is a convenience wrapper computing the percentage from the
// state's own fields.
func (s *State) Progress(c *CourseData, threshold int) int {
	return ProgressPct(c, s.CompletedLessons, s.QuizResults, threshold)
}

// SectionOrder returns the fixed cursor order for a week: overview,
// the lessons in sequence, resources, then quiz.
func SectionOrder(w *WeekSummary) []string {
	order := make([]string, 0, len(w.LessonTopics)+3)
	order = append(order, SectionOverview)
	for _, topic := range w.LessonTopics {
		order = append(order, topic.ID)
	}
	order = append(order, SectionResources, SectionQuiz)
	return order
}

// Move is a cursor transition planned by Advance or Retreat. Callers
// fetch week content for cross-week moves and only then Apply; a
// failed fetch leaves the cursor untouched.
type Move struct {
	Week           int    `json:"week"`
	Section        string `json:"section"`
	CrossesWeek    bool   `json:"-"`
	CourseComplete bool   `json:"course_complete,omitempty"`
}

// Advance plans the next cursor position. Past the quiz it moves to
// the following week's overview when that week is unlocked, or into
// the completion state past the final week once every quiz passed.
// Advancing from the completion state is a no-op.
func (s *State) Advance(c *CourseData, threshold int) (Move, error) {
	if s.ActiveSection == SectionCompleted {
		return Move{Week: s.CurrentWeek, Section: SectionCompleted, CourseComplete: true}, nil
	}

	w := c.Week(s.CurrentWeek)
	if w == nil {
		return Move{}, ErrWeekNotFound
	}

	order := SectionOrder(w)
	idx := indexOf(order, s.ActiveSection)
	if idx < 0 {
		return Move{}, ErrUnknownSection
	}
	if idx+1 < len(order) {
		return Move{Week: s.CurrentWeek, Section: order[idx+1]}, nil
	}

	next := s.CurrentWeek + 1
	if c.Week(next) == nil {
		if s.CourseComplete(c, threshold) {
			return Move{Week: s.CurrentWeek, Section: SectionCompleted, CourseComplete: true}, nil
		}
		return Move{}, ErrWeekLocked
	}
	if !s.IsWeekUnlocked(next, threshold) {
		return Move{}, ErrWeekLocked
	}
	return Move{Week: next, Section: SectionOverview, CrossesWeek: true}, nil
}

// Retreat plans the previous cursor position. Retreating from the
// overview of week n>1 jumps to the quiz of week n-1; from week 1's
// overview it is a no-op.
func (s *State) Retreat(c *CourseData) (Move, error) {
	if s.ActiveSection == SectionCompleted {
		final := c.FinalWeek()
		if final == nil {
			return Move{}, ErrWeekNotFound
		}
		return Move{Week: final.WeekNumber, Section: SectionQuiz, CrossesWeek: final.WeekNumber != s.CurrentWeek}, nil
	}

	w := c.Week(s.CurrentWeek)
	if w == nil {
		return Move{}, ErrWeekNotFound
	}

	order := SectionOrder(w)
	idx := indexOf(order, s.ActiveSection)
	if idx < 0 {
		return Move{}, ErrUnknownSection
	}
	if idx > 0 {
		return Move{Week: s.CurrentWeek, Section: order[idx-1]}, nil
	}

	if s.CurrentWeek <= 1 {
		return Move{Week: s.CurrentWeek, Section: SectionOverview}, nil
	}
	return Move{Week: s.CurrentWeek - 1, Section: SectionQuiz, CrossesWeek: true}, nil
}

// Apply commits a planned move to the cursor.
func (s *State) Apply(m Move) {
	s.CurrentWeek = m.Week
	s.ActiveSection = m.Section
}

// Moved reports whether applying the move would change the cursor.
func (s *State) Moved(m Move) bool {
	return m.Week != s.CurrentWeek || m.Section != s.ActiveSection
}

func indexOf(order []string, section string) int {
	for i, candidate := range order {
		if candidate == section {
			return i
		}
	}
	return -1
}
