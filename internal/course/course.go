// Package course holds the learner-facing course model and the
// progression state machine that decides week unlocking, section
// navigation and overall progress. Everything here is pure logic over
// data fetched from the tutor backend; persistence and transport live
// elsewhere.
package course

import "fmt"

// Section identifiers inside a week. Lesson sections use the lesson
// topic id and slot between overview and resources.
const (
	SectionOverview  = "overview"
	SectionResources = "resources"
	SectionQuiz      = "quiz"
	SectionCompleted = "completed"
)

// Derived week states.
const (
	WeekLocked     = "locked"
	WeekInProgress = "unlocked-in-progress"
	WeekCompleted  = "unlocked-completed"
)

// Navigation directions accepted by the navigate operation.
const (
	DirectionNext     = "next"
	DirectionPrevious = "previous"
)

// CourseData is the syllabus-shaped course description returned by
// course initialization. It is replaced wholesale on every new course
// start; the only in-place mutation is stamping quiz_completed on a
// week after a passing quiz.
type CourseData struct {
	Title         string                 `json:"title"`
	Summary       CourseSummary          `json:"summary"`
	TotalWeeks    int                    `json:"total_weeks"`
	Weeks         []WeekSummary          `json:"weeks"`
	Navigation    map[string]interface{} `json:"navigation,omitempty"`
	CourseContext map[string]interface{} `json:"course_context,omitempty"`
}

// CourseSummary carries the headline facts collected during onboarding.
type CourseSummary struct {
	CourseTitle string `json:"course_title"`
	Difficulty  string `json:"difficulty"`
	Duration    string `json:"duration,omitempty"`
}

// WeekSummary describes one week of the course. Identity is the
// 1-based week number, unique within the course.
type WeekSummary struct {
	WeekNumber    int           `json:"week_number"`
	Title         string        `json:"title"`
	LessonTopics  []LessonTopic `json:"lesson_topics"`
	Resources     []string      `json:"resources,omitempty"`
	QuizCompleted bool          `json:"quiz_completed"`
}

// HasResources reports whether the week carries a resources section
// that counts toward progress.
func (w *WeekSummary) HasResources() bool {
	return len(w.Resources) > 0
}

// LessonTopic is the syllabus-level view of a lesson. The full body is
// fetched lazily and cached in WeekContent.
type LessonTopic struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// WeekContent is the fully rendered content for one week, fetched on
// demand and cached per week number. Lesson bodies load lazily into
// Lessons as the learner opens them.
type WeekContent struct {
	WeekNumber int                      `json:"week_number"`
	Title      string                   `json:"title,omitempty"`
	Overview   string                   `json:"overview,omitempty"`
	Activities []string                 `json:"activities,omitempty"`
	Resources  []string                 `json:"resources,omitempty"`
	Lessons    map[string]LessonContent `json:"lessons,omitempty"`
}

// LessonContent is the rendered body for one lesson.
type LessonContent struct {
	ID     string   `json:"id"`
	Title  string   `json:"title,omitempty"`
	Body   string   `json:"body,omitempty"`
	Videos []string `json:"videos,omitempty"`
}

// Week returns the summary for week n, or nil when the course has no
// such week.
func (c *CourseData) Week(n int) *WeekSummary {
	for i := range c.Weeks {
		if c.Weeks[i].WeekNumber == n {
			return &c.Weeks[i]
		}
	}
	return nil
}

// FinalWeek returns the last week of the course, or nil for an empty
// course.
func (c *CourseData) FinalWeek() *WeekSummary {
	if len(c.Weeks) == 0 {
		return nil
	}
	return &c.Weeks[len(c.Weeks)-1]
}

// WeekCount returns the declared total week count, falling back to the
// length of the weeks slice.
func (c *CourseData) WeekCount() int {
	if c.TotalWeeks > 0 {
		return c.TotalWeeks
	}
	return len(c.Weeks)
}

// Normalize fills derived and defaulted fields after decoding a
// backend payload: positional week numbers, generated lesson ids,
// total week count and title fallbacks. Call once at the client
// boundary so the rest of the code can trust the shape.
func (c *CourseData) Normalize() {
	for i := range c.Weeks {
		w := &c.Weeks[i]
		if w.WeekNumber == 0 {
			w.WeekNumber = i + 1
		}
		if w.Title == "" {
			w.Title = fmt.Sprintf("Week %d", w.WeekNumber)
		}
		for j := range w.LessonTopics {
			t := &w.LessonTopics[j]
			if t.ID == "" {
				t.ID = fmt.Sprintf("lesson-%d", j+1)
			}
			if t.Title == "" {
				t.Title = t.ID
			}
		}
	}
	if c.TotalWeeks == 0 {
		c.TotalWeeks = len(c.Weeks)
	}
	if c.Title == "" {
		c.Title = c.Summary.CourseTitle
	}
}

// WeekKey builds the storage key suffix for per-week quiz results.
func WeekKey(week int) string {
	return fmt.Sprintf("week%d", week)
}

// GlobalLessonID scopes a lesson id to its week so completions from
// different weeks never collide.
func GlobalLessonID(week int, lessonID string) string {
	return fmt.Sprintf("week%d:%s", week, lessonID)
}
