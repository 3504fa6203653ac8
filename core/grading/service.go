package grading

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enrollment"
	"github.com/darasa-lms/darasa/core/progress"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrQuizSubmissionNotFound = core.NewError(core.KindNotFound, "quiz submission not found")
	ErrSubmissionNotFound     = core.NewError(core.KindNotFound, "assignment submission not found")
	ErrMaxAttemptsReached     = core.NewError(core.KindConflict, "maximum number of attempts reached")
	ErrDuplicateAttempt       = core.NewError(core.KindConflict, "this attempt has already been submitted")
	ErrAlreadySubmitted       = core.NewError(core.KindConflict, "assignment already submitted")
	ErrAssignmentClosed       = core.NewError(core.KindConflict, "assignment is not open for submissions")
	ErrDeadlinePassed         = core.NewError(core.KindConflict, "the submission deadline has passed")
	ErrInvalidTransition      = core.NewError(core.KindConflict, "invalid submission status transition")
	ErrForbidden              = core.NewError(core.KindForbidden, "you are not allowed to access this submission")
)

type (
	QuizSubmissionRepository interface {
		// MaxAttempt returns the highest attempt number of a user at a quiz, 0 if none.
		MaxAttempt(ctx context.Context, userID, quizID string) (int, error)
		// CreateQuizSubmission returns ErrDuplicateAttempt when the (user, quiz, attempt) triple is taken.
		CreateQuizSubmission(ctx context.Context, s QuizSubmission) (QuizSubmission, error)
		GetQuizSubmission(ctx context.Context, id string) (QuizSubmission, error)
		ListQuizSubmissions(ctx context.Context, filter QuizSubmissionFilter) ([]QuizSubmission, error)
	}

	AssignmentSubmissionRepository interface {
		// CreateSubmission returns ErrAlreadySubmitted when the user already submitted the assignment.
		CreateSubmission(ctx context.Context, s AssignmentSubmission) (AssignmentSubmission, error)
		GetSubmission(ctx context.Context, id string) (AssignmentSubmission, error)
		ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]AssignmentSubmission, error)
		UpdateSubmission(ctx context.Context, s AssignmentSubmission) (AssignmentSubmission, error)
	}

	Service interface {
		SubmitQuiz(ctx context.Context, actor user.User, ns NewQuizSubmission) (QuizSubmission, error)
		GetQuizSubmission(ctx context.Context, actor user.User, id string) (QuizSubmission, error)
		// ListQuizSubmissions lists the attempts of actor, or of everyone when actor manages the quiz's course.
		ListQuizSubmissions(ctx context.Context, actor user.User, filter QuizSubmissionFilter) ([]QuizSubmission, error)

		SubmitAssignment(ctx context.Context, actor user.User, assignmentID string, ns NewAssignmentSubmission) (AssignmentSubmission, error)
		GetSubmission(ctx context.Context, actor user.User, id string) (AssignmentSubmission, error)
		ListSubmissions(ctx context.Context, actor user.User, filter SubmissionFilter) ([]AssignmentSubmission, error)
		Grade(ctx context.Context, actor user.User, id string, gs GradeSubmission) (AssignmentSubmission, error)
		Return(ctx context.Context, actor user.User, id string, rs ReturnSubmission) (AssignmentSubmission, error)
		Resubmit(ctx context.Context, actor user.User, id string, ns NewAssignmentSubmission) (AssignmentSubmission, error)
		AddPeerReview(ctx context.Context, actor user.User, id string, pr PeerReview) (AssignmentSubmission, error)
	}

	service struct {
		quizRepo       QuizSubmissionRepository
		submissionRepo AssignmentSubmissionRepository
		tx             core.Transactor
		courseSvc      course.Service
		enrollSvc      enrollment.Service
		progressSvc    progress.Service
		events         core.EventPublisher
		quizPassPct    float64
		logger         core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	quizRepo QuizSubmissionRepository,
	submissionRepo AssignmentSubmissionRepository,
	tx core.Transactor,
	courseSvc course.Service,
	enrollSvc enrollment.Service,
	progressSvc progress.Service,
	events core.EventPublisher,
	conf *core.Config,
	logger core.Logger,
) Service {
	return &service{
		quizRepo:       quizRepo,
		submissionRepo: submissionRepo,
		tx:             tx,
		courseSvc:      courseSvc,
		enrollSvc:      enrollSvc,
		progressSvc:    progressSvc,
		events:         events,
		quizPassPct:    conf.Grading.QuizPassingPercentage,
		logger:         logger,
	}
}

// Quizzes

func (svc *service) SubmitQuiz(ctx context.Context, actor user.User, ns NewQuizSubmission) (QuizSubmission, error) {
	q, err := svc.courseSvc.GetQuiz(ctx, ns.QuizID)
	if err != nil {
		return QuizSubmission{}, err
	}
	enr, err := svc.enrollSvc.RequireOngoing(ctx, q.CourseID, actor.ID)
	if err != nil {
		return QuizSubmission{}, err
	}
	lesson, err := svc.courseSvc.GetLesson(ctx, q.LessonID)
	if err != nil {
		return QuizSubmission{}, pkgerrors.Wrap(err, "finding lesson")
	}

	var score, maxScore float64
	if ns.SelectedAnswer != nil {
		if *ns.SelectedAnswer >= len(q.Answers) {
			return QuizSubmission{}, core.NewFieldError("selected_answer", "selected_answer must be the index of one of the answers")
		}
		maxScore = 1
		if *ns.SelectedAnswer == q.CorrectAnswer {
			score = 1
		}
	} else {
		score, maxScore = *ns.Score, *ns.MaxScore
	}

	now := time.Now().UTC()
	pct := Percentage(score, maxScore)
	sub := QuizSubmission{
		QuizID:           q.ID,
		LessonID:         q.LessonID,
		CourseID:         q.CourseID,
		UserID:           actor.ID,
		EnrollmentID:     enr.ID,
		SelectedAnswer:   ns.SelectedAnswer,
		Score:            score,
		MaxScore:         maxScore,
		Percentage:       pct,
		IsPassed:         Passed(score, maxScore, q.PassThreshold(svc.quizPassPct)),
		Status:           QuizStatusGraded,
		TimeTakenSeconds: ns.TimeTakenSeconds,
		SubmittedAt:      now,
		CreatedAt:        now,
	}

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		prior, err := svc.quizRepo.MaxAttempt(ctx, actor.ID, q.ID)
		if err != nil {
			return pkgerrors.Wrap(err, "counting attempts")
		}
		if q.MaxAttempts != nil && prior >= *q.MaxAttempts {
			return ErrMaxAttemptsReached
		}
		sub.AttemptNumber = prior + 1
		if sub, err = svc.quizRepo.CreateQuizSubmission(ctx, sub); err != nil {
			return err
		}

		status := progress.StatusFailed
		if sub.IsPassed {
			status = progress.StatusCompleted
		}
		_, err = svc.progressSvc.Save(ctx, progress.CourseProgress{
			EnrollmentID:         enr.ID,
			CourseID:             q.CourseID,
			UserID:               actor.ID,
			ModuleID:             &lesson.ModuleID,
			LessonID:             &q.LessonID,
			QuizID:               &q.ID,
			ProgressType:         progress.TypeQuiz,
			Status:               status,
			CompletionPercentage: pct,
			Score:                &pct,
			MaxAttempts:          q.MaxAttempts,
		})
		return err
	})
	if err != nil {
		return QuizSubmission{}, err
	}

	core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventQuizGraded, sub.ID, sub))
	return sub, nil
}

func (svc *service) GetQuizSubmission(ctx context.Context, actor user.User, id string) (QuizSubmission, error) {
	sub, err := svc.quizRepo.GetQuizSubmission(ctx, id)
	if err != nil {
		return QuizSubmission{}, err
	}
	if err := svc.authorizeRead(ctx, actor, sub.UserID, sub.CourseID); err != nil {
		return QuizSubmission{}, err
	}
	return sub, nil
}

func (svc *service) ListQuizSubmissions(ctx context.Context, actor user.User, filter QuizSubmissionFilter) ([]QuizSubmission, error) {
	if filter.QuizID == "" {
		return nil, core.NewFieldError("quiz_id", "this field is required")
	}
	q, err := svc.courseSvc.GetQuiz(ctx, filter.QuizID)
	if err != nil {
		return nil, err
	}
	if _, err := svc.courseSvc.Authorize(ctx, actor, q.CourseID); err != nil {
		filter.UserID = actor.ID
	}
	return svc.quizRepo.ListQuizSubmissions(ctx, filter)
}

// authorizeRead lets the submitter and the course managers through.
func (svc *service) authorizeRead(ctx context.Context, actor user.User, ownerID, courseID string) error {
	if actor.ID == ownerID {
		return nil
	}
	if _, err := svc.courseSvc.Authorize(ctx, actor, courseID); err != nil {
		return ErrForbidden
	}
	return nil
}

// Assignments

func (svc *service) SubmitAssignment(ctx context.Context, actor user.User, assignmentID string, ns NewAssignmentSubmission) (AssignmentSubmission, error) {
	a, err := svc.courseSvc.GetAssignment(ctx, assignmentID)
	if err != nil {
		return AssignmentSubmission{}, err
	}
	if a.Status != course.ContentPublished {
		return AssignmentSubmission{}, ErrAssignmentClosed
	}
	enr, err := svc.enrollSvc.RequireOngoing(ctx, a.CourseID, actor.ID)
	if err != nil {
		return AssignmentSubmission{}, err
	}

	now := time.Now().UTC()
	late := a.IsLate(now)
	if late && !a.AllowLateSubmission {
		return AssignmentSubmission{}, ErrDeadlinePassed
	}

	sub := AssignmentSubmission{
		AssignmentID:  a.ID,
		CourseID:      a.CourseID,
		UserID:        actor.ID,
		EnrollmentID:  enr.ID,
		Content:       ns.Content,
		AttachmentURL: ns.AttachmentURL,
		MaxScore:      a.MaxScore,
		IsLate:        late,
		Status:        StatusSubmitted,
		Attempt:       1,
		SubmittedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if sub, err = svc.submissionRepo.CreateSubmission(ctx, sub); err != nil {
			return err
		}
		return svc.saveAssignmentProgress(ctx, a, sub, progress.StatusInProgress, 0)
	})
	if err != nil {
		return AssignmentSubmission{}, err
	}

	core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventAssignmentSubmitted, sub.ID, sub))
	return sub, nil
}

func (svc *service) saveAssignmentProgress(ctx context.Context, a course.Assignment, sub AssignmentSubmission, status string, pct float64) error {
	p := progress.CourseProgress{
		EnrollmentID:         sub.EnrollmentID,
		CourseID:             a.CourseID,
		UserID:               sub.UserID,
		ModuleID:             a.ModuleID,
		LessonID:             a.LessonID,
		AssignmentID:         &a.ID,
		ProgressType:         progress.TypeAssignment,
		Status:               status,
		CompletionPercentage: pct,
		Score:                sub.Percentage,
	}
	if _, err := svc.progressSvc.Save(ctx, p); err != nil {
		return pkgerrors.Wrap(err, "saving assignment progress")
	}
	return nil
}

func (svc *service) GetSubmission(ctx context.Context, actor user.User, id string) (AssignmentSubmission, error) {
	sub, err := svc.submissionRepo.GetSubmission(ctx, id)
	if err != nil {
		return AssignmentSubmission{}, err
	}
	if err := svc.authorizeRead(ctx, actor, sub.UserID, sub.CourseID); err != nil {
		return AssignmentSubmission{}, err
	}
	return sub, nil
}

func (svc *service) ListSubmissions(ctx context.Context, actor user.User, filter SubmissionFilter) ([]AssignmentSubmission, error) {
	a, err := svc.courseSvc.GetAssignment(ctx, filter.AssignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := svc.courseSvc.Authorize(ctx, actor, a.CourseID); err != nil {
		filter.UserID = actor.ID
	}
	return svc.submissionRepo.ListSubmissions(ctx, filter)
}

// manage loads a submission the actor manages, along with its assignment.
func (svc *service) manage(ctx context.Context, actor user.User, id string) (AssignmentSubmission, course.Assignment, error) {
	sub, err := svc.submissionRepo.GetSubmission(ctx, id)
	if err != nil {
		return AssignmentSubmission{}, course.Assignment{}, err
	}
	if _, err := svc.courseSvc.Authorize(ctx, actor, sub.CourseID); err != nil {
		return AssignmentSubmission{}, course.Assignment{}, err
	}
	a, err := svc.courseSvc.GetAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return AssignmentSubmission{}, course.Assignment{}, pkgerrors.Wrap(err, "finding assignment")
	}
	return sub, a, nil
}

func (svc *service) Grade(ctx context.Context, actor user.User, id string, gs GradeSubmission) (AssignmentSubmission, error) {
	sub, a, err := svc.manage(ctx, actor, id)
	if err != nil {
		return AssignmentSubmission{}, err
	}
	if !sub.CanBeGraded() {
		return AssignmentSubmission{}, ErrInvalidTransition
	}
	score := *gs.Score
	if score > a.MaxScore {
		return AssignmentSubmission{}, core.NewFieldError("score", "score cannot exceed the assignment max_score")
	}

	now := time.Now().UTC()
	pct := Percentage(score, a.MaxScore)
	sub.Score = &score
	sub.MaxScore = a.MaxScore
	sub.Percentage = &pct
	sub.IsPassed = Passed(score, a.MaxScore, a.PassingPercentage)
	sub.Status = StatusGraded
	sub.Feedback = gs.Feedback
	if gs.Rubric != nil {
		sub.Rubric = gs.Rubric
	}
	if gs.PlagiarismScore != nil {
		sub.PlagiarismScore = gs.PlagiarismScore
	}
	sub.GradedAt = &now
	sub.GradedBy = &actor.ID
	sub.UpdatedAt = now

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if sub, err = svc.submissionRepo.UpdateSubmission(ctx, sub); err != nil {
			return pkgerrors.Wrap(err, "updating submission")
		}
		status := progress.StatusFailed
		if sub.IsPassed {
			status = progress.StatusCompleted
		}
		return svc.saveAssignmentProgress(ctx, a, sub, status, pct)
	})
	if err != nil {
		return AssignmentSubmission{}, err
	}

	core.PublishQuietly(ctx, svc.events, svc.logger, core.NewEvent(core.EventAssignmentGraded, sub.ID, sub))
	return sub, nil
}

func (svc *service) Return(ctx context.Context, actor user.User, id string, rs ReturnSubmission) (AssignmentSubmission, error) {
	sub, _, err := svc.manage(ctx, actor, id)
	if err != nil {
		return AssignmentSubmission{}, err
	}
	if sub.Status != StatusGraded {
		return AssignmentSubmission{}, ErrInvalidTransition
	}
	now := time.Now().UTC()
	sub.Status = StatusReturned
	if rs.Feedback != "" {
		sub.Feedback = rs.Feedback
	}
	sub.ReturnedAt = &now
	sub.UpdatedAt = now
	return svc.submissionRepo.UpdateSubmission(ctx, sub)
}

func (svc *service) Resubmit(ctx context.Context, actor user.User, id string, ns NewAssignmentSubmission) (AssignmentSubmission, error) {
	sub, err := svc.submissionRepo.GetSubmission(ctx, id)
	if err != nil {
		return AssignmentSubmission{}, err
	}
	if sub.UserID != actor.ID {
		return AssignmentSubmission{}, ErrForbidden
	}
	if sub.Status != StatusReturned {
		return AssignmentSubmission{}, ErrInvalidTransition
	}
	a, err := svc.courseSvc.GetAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return AssignmentSubmission{}, pkgerrors.Wrap(err, "finding assignment")
	}

	now := time.Now().UTC()
	late := a.IsLate(now)
	if late && !a.AllowLateSubmission {
		return AssignmentSubmission{}, ErrDeadlinePassed
	}

	sub.Content = ns.Content
	sub.AttachmentURL = ns.AttachmentURL
	sub.Status = StatusResubmitted
	sub.IsLate = late
	sub.Attempt++
	sub.Score = nil
	sub.Percentage = nil
	sub.IsPassed = false
	sub.GradedAt = nil
	sub.GradedBy = nil
	sub.SubmittedAt = now
	sub.UpdatedAt = now

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if sub, err = svc.submissionRepo.UpdateSubmission(ctx, sub); err != nil {
			return pkgerrors.Wrap(err, "updating submission")
		}
		return svc.saveAssignmentProgress(ctx, a, sub, progress.StatusInProgress, 0)
	})
	if err != nil {
		return AssignmentSubmission{}, err
	}
	return sub, nil
}

func (svc *service) AddPeerReview(ctx context.Context, actor user.User, id string, pr PeerReview) (AssignmentSubmission, error) {
	sub, err := svc.submissionRepo.GetSubmission(ctx, id)
	if err != nil {
		return AssignmentSubmission{}, err
	}
	if sub.UserID == actor.ID {
		return AssignmentSubmission{}, core.NewError(core.KindForbidden, "you cannot review your own submission")
	}
	if _, err := svc.enrollSvc.RequireOngoing(ctx, sub.CourseID, actor.ID); err != nil {
		return AssignmentSubmission{}, err
	}
	for _, review := range sub.PeerReviews {
		if review["reviewer_id"] == actor.ID {
			return AssignmentSubmission{}, core.NewError(core.KindConflict, "you already reviewed this submission")
		}
	}

	now := time.Now().UTC()
	sub.PeerReviews = append(sub.PeerReviews, map[string]interface{}{
		"reviewer_id": actor.ID,
		"rating":      pr.Rating,
		"comment":     pr.Comment,
		"created_at":  now.Format(time.RFC3339),
	})
	sub.UpdatedAt = now
	return svc.submissionRepo.UpdateSubmission(ctx, sub)
}
