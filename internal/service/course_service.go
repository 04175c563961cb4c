package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/observability"
	"github.com/sandwich-learn/sandwich-api/internal/session"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

// CheckpointCounter bumps the wellbeing checkpoint counter after a
// lesson completion or quiz submission and reports whether a check-in
// prompt is now due. A nil counter disables prompting.
type CheckpointCounter interface {
	Bump(ctx context.Context, sessionID string) (bool, error)
}

// CourseService owns course initialization, content fetching, lesson
// completion, navigation and the derived progress views.
type CourseService interface {
	Initialize(ctx context.Context, sessionID string, req dto.CourseInitializeRequest) (dto.CourseResponse, error)
	Get(ctx context.Context, sessionID string) (dto.CourseResponse, error)
	WeekContent(ctx context.Context, sessionID string, week int) (course.WeekContent, error)
	LessonContent(ctx context.Context, sessionID string, week int, lessonID string) (course.LessonContent, error)
	CompleteLesson(ctx context.Context, sessionID string, week int, lessonID string) (dto.LessonCompleteResponse, error)
	Navigate(ctx context.Context, sessionID, direction string) (dto.NavigateResponse, error)
	Section(ctx context.Context, sessionID string) (dto.SectionResponse, error)
	Progress(ctx context.Context, sessionID string) (dto.ProgressResponse, error)
	Summary(ctx context.Context, sessionID string) (dto.CourseSummaryResponse, error)
}

type courseService struct {
	progressionStore
	tutor       TutorClient
	checkpoints CheckpointCounter
	events      *ProgressPublisher
	validator   *validator.Validate
	threshold   int
	logger      zerolog.Logger
}

// NewCourseService builds the course service.
func NewCourseService(store session.Store, tutor TutorClient, checkpoints CheckpointCounter, events *ProgressPublisher, validate *validator.Validate, threshold int, logger zerolog.Logger) CourseService {
	return &courseService{
		progressionStore: progressionStore{store: store},
		tutor:            tutor,
		checkpoints:      checkpoints,
		events:           events,
		validator:        validate,
		threshold:        threshold,
		logger:           logger.With().Str("component", "course_service").Logger(),
	}
}

// Initialize generates the course from the accepted syllabus and
// replaces any previous course wholesale: prior progression state is
// wiped before the new course is stored.
func (s *courseService) Initialize(ctx context.Context, sessionID string, req dto.CourseInitializeRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CourseResponse{}, err
	}

	data, err := s.tutor.InitializeCourse(ctx, upstream.InitializeCourseRequest{
		SyllabusText:  req.SyllabusText,
		CourseContext: req.CourseContext,
	})
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if err := s.store.Clear(ctx, sessionID); err != nil {
		return dto.CourseResponse{}, fmt.Errorf("reset prior session: %w", err)
	}

	state := course.NewState()
	if err := s.saveCourse(ctx, sessionID, &data); err != nil {
		return dto.CourseResponse{}, err
	}
	if err := s.saveCursor(ctx, sessionID, state); err != nil {
		return dto.CourseResponse{}, err
	}
	if err := s.store.Set(ctx, sessionID, session.KeySessionActive, true); err != nil {
		return dto.CourseResponse{}, err
	}

	observability.CoursesInitialized().Inc()
	s.events.Publish(ctx, ProgressEvent{Type: EventCourseInitialized, SessionID: sessionID})
	s.logger.Info().Str("session_id", sessionID).Str("course", data.Title).Int("weeks", data.WeekCount()).Msg("course initialized")

	return s.buildCourseResponse(&data, state), nil
}

func (s *courseService) Get(ctx context.Context, sessionID string) (dto.CourseResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	return s.buildCourseResponse(data, state), nil
}

func (s *courseService) buildCourseResponse(data *course.CourseData, state course.State) dto.CourseResponse {
	weekStates := make([]dto.WeekStateInfo, 0, len(data.Weeks))
	for i := range data.Weeks {
		w := &data.Weeks[i]
		weekStates = append(weekStates, dto.WeekStateInfo{
			WeekNumber:    w.WeekNumber,
			Title:         w.Title,
			State:         state.WeekState(data, w.WeekNumber, s.threshold),
			QuizCompleted: w.QuizCompleted,
			LessonCount:   len(w.LessonTopics),
		})
	}

	return dto.CourseResponse{
		CourseData:     *data,
		WeekStates:     weekStates,
		CurrentWeek:    state.CurrentWeek,
		ActiveSection:  state.ActiveSection,
		ProgressPct:    state.Progress(data, s.threshold),
		CourseComplete: state.CourseComplete(data, s.threshold),
	}
}

// WeekContent returns the cached content for an unlocked week,
// fetching and caching it on first access.
func (s *courseService) WeekContent(ctx context.Context, sessionID string, week int) (course.WeekContent, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return course.WeekContent{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return course.WeekContent{}, err
	}

	if data.Week(week) == nil {
		return course.WeekContent{}, course.ErrWeekNotFound
	}
	if !state.IsWeekUnlocked(week, s.threshold) {
		return course.WeekContent{}, course.ErrWeekLocked
	}

	return s.fetchWeekContent(ctx, sessionID, data, week)
}

// fetchWeekContent is the cache-aside path shared by content reads and
// cross-week navigation. A cache read failure counts as a miss.
func (s *courseService) fetchWeekContent(ctx context.Context, sessionID string, data *course.CourseData, week int) (course.WeekContent, error) {
	cached, err := s.cachedWeekContent(ctx, sessionID, week)
	if err != nil {
		s.logger.Warn().Err(err).Int("week", week).Msg("week content cache read failed")
	}
	if cached != nil {
		return *cached, nil
	}

	content, err := s.tutor.GetWeekContent(ctx, upstream.WeekContentRequest{
		WeekNumber: week,
		CourseData: *data,
	})
	if err != nil {
		return course.WeekContent{}, err
	}

	if err := s.saveWeekContent(ctx, sessionID, &content); err != nil {
		s.logger.Warn().Err(err).Int("week", week).Msg("failed to cache week content")
	}
	return content, nil
}

// LessonContent lazily fetches one lesson body and caches it inside
// the week's content entry.
func (s *courseService) LessonContent(ctx context.Context, sessionID string, week int, lessonID string) (course.LessonContent, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return course.LessonContent{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return course.LessonContent{}, err
	}

	w := data.Week(week)
	if w == nil {
		return course.LessonContent{}, course.ErrWeekNotFound
	}
	if !state.IsWeekUnlocked(week, s.threshold) {
		return course.LessonContent{}, course.ErrWeekLocked
	}

	topic := findTopic(w, lessonID)
	if topic == nil {
		return course.LessonContent{}, ErrLessonNotFound
	}

	content, err := s.fetchWeekContent(ctx, sessionID, data, week)
	if err != nil {
		return course.LessonContent{}, err
	}
	if lesson, ok := content.Lessons[lessonID]; ok && lesson.Body != "" {
		return lesson, nil
	}

	lesson, err := s.tutor.GetLessonContent(ctx, upstream.LessonContentRequest{
		LessonInfo: upstream.LessonInfo{
			WeekNumber: week,
			LessonID:   topic.ID,
			Title:      topic.Title,
			Summary:    topic.Summary,
		},
		CourseContext: data.CourseContext,
	})
	if err != nil {
		return course.LessonContent{}, err
	}

	if content.Lessons == nil {
		content.Lessons = map[string]course.LessonContent{}
	}
	content.Lessons[lessonID] = lesson
	if err := s.saveWeekContent(ctx, sessionID, &content); err != nil {
		s.logger.Warn().Err(err).Int("week", week).Str("lesson", lessonID).Msg("failed to cache lesson content")
	}
	return lesson, nil
}

// CompleteLesson records the lesson in the completed set. The
// operation is idempotent; only a first completion bumps the wellbeing
// checkpoint and publishes an event.
func (s *courseService) CompleteLesson(ctx context.Context, sessionID string, week int, lessonID string) (dto.LessonCompleteResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.LessonCompleteResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.LessonCompleteResponse{}, err
	}

	w := data.Week(week)
	if w == nil {
		return dto.LessonCompleteResponse{}, course.ErrWeekNotFound
	}
	if !state.IsWeekUnlocked(week, s.threshold) {
		return dto.LessonCompleteResponse{}, course.ErrWeekLocked
	}
	if findTopic(w, lessonID) == nil {
		return dto.LessonCompleteResponse{}, ErrLessonNotFound
	}

	newly := state.RecordLessonCompletion(course.GlobalLessonID(week, lessonID))
	if newly {
		if err := s.saveCompletedLessons(ctx, sessionID, state); err != nil {
			return dto.LessonCompleteResponse{}, err
		}
	}

	progress := state.Progress(data, s.threshold)
	response := dto.LessonCompleteResponse{
		NewlyCompleted: newly,
		WeekCompleted:  state.IsWeekCompleted(data, week),
		ProgressPct:    progress,
	}

	if newly {
		observability.LessonsCompleted().Inc()
		s.events.Publish(ctx, ProgressEvent{
			Type:        EventLessonCompleted,
			SessionID:   sessionID,
			WeekNumber:  week,
			LessonID:    lessonID,
			ProgressPct: progress,
		})
		response.WellbeingPrompt = s.bumpCheckpoint(ctx, sessionID)
	}

	return response, nil
}

func (s *courseService) bumpCheckpoint(ctx context.Context, sessionID string) bool {
	if s.checkpoints == nil {
		return false
	}
	due, err := s.checkpoints.Bump(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to bump wellbeing checkpoint")
		return false
	}
	return due
}

// Navigate advances or retreats the section cursor. Cross-week moves
// fetch the target week's content first; on fetch failure the cursor
// does not move.
func (s *courseService) Navigate(ctx context.Context, sessionID, direction string) (dto.NavigateResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.NavigateResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.NavigateResponse{}, err
	}

	var move course.Move
	switch direction {
	case course.DirectionNext:
		move, err = state.Advance(data, s.threshold)
	case course.DirectionPrevious:
		move, err = state.Retreat(data)
	default:
		err = fmt.Errorf("unknown direction %q", direction)
	}
	if err != nil {
		return dto.NavigateResponse{}, err
	}

	response := dto.NavigateResponse{
		CurrentWeek:    move.Week,
		ActiveSection:  move.Section,
		Moved:          state.Moved(move),
		CourseComplete: move.CourseComplete,
	}

	if move.CrossesWeek {
		content, err := s.fetchWeekContent(ctx, sessionID, data, move.Week)
		if err != nil {
			return dto.NavigateResponse{}, err
		}
		response.WeekContent = &content
	}

	if response.Moved {
		state.Apply(move)
		if err := s.saveCursor(ctx, sessionID, state); err != nil {
			return dto.NavigateResponse{}, err
		}
	}

	if move.CourseComplete && move.Section == course.SectionCompleted {
		s.events.Publish(ctx, ProgressEvent{
			Type:        EventCourseCompleted,
			SessionID:   sessionID,
			ProgressPct: state.Progress(data, s.threshold),
		})
	}

	return response, nil
}

// Section reports the cursor position and the navigation affordances
// the UI renders.
func (s *courseService) Section(ctx context.Context, sessionID string) (dto.SectionResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.SectionResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.SectionResponse{}, err
	}

	canAdvance := false
	if _, err := state.Advance(data, s.threshold); err == nil {
		canAdvance = true
	}

	canRetreat := false
	if move, err := state.Retreat(data); err == nil && state.Moved(move) {
		canRetreat = true
	}

	return dto.SectionResponse{
		CurrentWeek:    state.CurrentWeek,
		ActiveSection:  state.ActiveSection,
		CanAdvance:     canAdvance,
		CanRetreat:     canRetreat,
		CourseComplete: state.CourseComplete(data, s.threshold),
	}, nil
}

// Progress returns the aggregate percentage with its per-week
// breakdown.
func (s *courseService) Progress(ctx context.Context, sessionID string) (dto.ProgressResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	weeks := make([]dto.WeekProgress, 0, len(data.Weeks))
	for i := range data.Weeks {
		w := &data.Weeks[i]

		completed := 0
		for _, topic := range w.LessonTopics {
			if state.CompletedLessons[course.GlobalLessonID(w.WeekNumber, topic.ID)] {
				completed++
			}
		}

		row := dto.WeekProgress{
			WeekNumber:       w.WeekNumber,
			State:            state.WeekState(data, w.WeekNumber, s.threshold),
			LessonsCompleted: completed,
			LessonCount:      len(w.LessonTopics),
			QuizCompleted:    w.QuizCompleted,
		}
		if result, ok := state.QuizResults[course.WeekKey(w.WeekNumber)]; ok {
			pct := result.Results.Percentage
			row.QuizPercentage = &pct
		}
		weeks = append(weeks, row)
	}

	return dto.ProgressResponse{
		ProgressPct:    state.Progress(data, s.threshold),
		CourseComplete: state.CourseComplete(data, s.threshold),
		Weeks:          weeks,
	}, nil
}

// Summary builds the completion summary. It is available any time and
// flagged complete only once every week's quiz has a passing result.
func (s *courseService) Summary(ctx context.Context, sessionID string) (dto.CourseSummaryResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.CourseSummaryResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.CourseSummaryResponse{}, err
	}

	grades := make([]dto.WeekGrade, 0, len(data.Weeks))
	var total float64
	passed := 0
	for i := range data.Weeks {
		w := &data.Weeks[i]
		result, ok := state.QuizResults[course.WeekKey(w.WeekNumber)]
		if !ok {
			continue
		}
		grades = append(grades, dto.WeekGrade{
			WeekNumber:  w.WeekNumber,
			Percentage:  result.Results.Percentage,
			GradeLetter: result.Results.GradeLetter,
		})
		total += result.Results.Percentage
		if result.Passed(s.threshold) {
			passed++
		}
	}

	average := 0.0
	if len(grades) > 0 {
		average = total / float64(len(grades))
	}

	return dto.CourseSummaryResponse{
		Complete:         state.CourseComplete(data, s.threshold),
		CourseTitle:      data.Title,
		Difficulty:       data.Summary.Difficulty,
		TotalWeeks:       data.WeekCount(),
		LessonsCompleted: len(state.CompletedLessons),
		QuizzesPassed:    passed,
		AverageQuizPct:   average,
		ProgressPct:      state.Progress(data, s.threshold),
		Grades:           grades,
		Summary:          data.Summary,
	}, nil
}

func findTopic(w *course.WeekSummary, lessonID string) *course.LessonTopic {
	for i := range w.LessonTopics {
		if w.LessonTopics[i].ID == lessonID {
			return &w.LessonTopics[i]
		}
	}
	return nil
}
