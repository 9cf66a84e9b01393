// Package checker orchestrates one check cycle: per course it loads the
// previous snapshot, builds a fresh one, diffs the two, persists the result
// and collects the changes for notification.
package checker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/ppdms/tree-eclass/internal/common"
	"github.com/ppdms/tree-eclass/internal/entity"
	"github.com/ppdms/tree-eclass/internal/service/tree"
)

type TreeBuilder interface {
	Build(ctx context.Context, url, localPath, name string, old *entity.Node) (*entity.Node, error)
}

type SnapshotRepository interface {
	LoadTree(ctx context.Context, courseID int) (*entity.Node, error)
	SaveTree(ctx context.Context, courseID int, root *entity.Node) error
	AppendChangeRecord(ctx context.Context, rec *entity.ChangeRecord) error
}

type Notifier interface {
	Notify(ctx context.Context, changes map[string][]entity.Change) error
}

// CourseURL resolves the documents page of a course ID.
type CourseURL func(courseID int) string

type CheckerService struct {
	builder   TreeBuilder
	repo      SnapshotRepository
	notifier  Notifier
	fs        afero.Fs
	courses   []entity.Course
	courseURL CourseURL
	out       io.Writer
	running   atomic.Bool
	log       *slog.Logger
}

func NewCheckerService(
	builder TreeBuilder,
	repo SnapshotRepository,
	notifier Notifier,
	fs afero.Fs,
	courses []entity.Course,
	courseURL CourseURL,
	out io.Writer,
	log *slog.Logger,
) *CheckerService {
	return &CheckerService{
		builder:   builder,
		repo:      repo,
		notifier:  notifier,
		fs:        fs,
		courses:   courses,
		courseURL: courseURL,
		out:       out,
		log:       log.With(slog.String("item", "CheckerService")),
	}
}

// CheckAll runs one cycle over every configured course. A failing course is
// logged and contributes no changes; it never blocks the other courses or
// the notification. Only one cycle may run at a time.
func (s *CheckerService) CheckAll(ctx context.Context) (map[string][]entity.Change, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, common.ErrCheckHasAlreadyStarted
	}
	defer s.running.Store(false)

	s.log.Info("Check started", slog.Int("courses", len(s.courses)))

	allChanges := make(map[string][]entity.Change)
	for _, course := range s.courses {
		changes, err := s.checkCourse(ctx, course)
		if err != nil {
			// Treated as "no changes this cycle", the previous
			// snapshot stays in place.
			s.log.Error("Course check failed", slog.String("course", course.Name), slog.Any("error", err))

			continue
		}

		if len(changes) > 0 {
			allChanges[course.Name] = changes
		}
	}

	if len(allChanges) > 0 {
		if err := s.notifier.Notify(ctx, allChanges); err != nil {
			s.log.Error("Cannot send notification", slog.Any("error", err))
		}
	}

	s.log.Info("Check finished", slog.Int("changed_courses", len(allChanges)))

	return allChanges, nil
}

// CheckCourse runs one cycle for a single course.
func (s *CheckerService) CheckCourse(ctx context.Context, courseID int) ([]entity.Change, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, common.ErrCheckHasAlreadyStarted
	}
	defer s.running.Store(false)

	for _, course := range s.courses {
		if course.ID == courseID {
			changes, err := s.checkCourse(ctx, course)
			if err != nil {
				return nil, err
			}

			if len(changes) > 0 {
				if err := s.notifier.Notify(ctx, map[string][]entity.Change{course.Name: changes}); err != nil {
					s.log.Error("Cannot send notification", slog.Any("error", err))
				}
			}

			return changes, nil
		}
	}

	return nil, fmt.Errorf("course %d: %w", courseID, common.ErrCourseNotFoundError)
}

func (s *CheckerService) checkCourse(ctx context.Context, course entity.Course) ([]entity.Change, error) {
	log := s.log.With(slog.String("course", course.Name), slog.Int("course_id", course.ID))
	log.Info("Check course")

	// The mirror is rebuilt from scratch every cycle.
	if err := s.fs.RemoveAll(course.DownloadFolder); err != nil {
		log.Error("Cannot clean download folder", slog.String("path", course.DownloadFolder), slog.Any("error", err))
	}

	old, err := s.repo.LoadTree(ctx, course.ID)
	if err != nil {
		log.Error("Cannot load previous tree, assuming first check", slog.Any("error", err))
		old = nil
	}

	latest, err := s.builder.Build(ctx, s.courseURL(course.ID), course.DownloadFolder, course.Name, old)
	if err != nil {
		return nil, fmt.Errorf("cannot build tree: %w", err)
	}

	changes := tree.Diff(old, latest)
	if len(changes) > 0 {
		rec := newChangeRecord(course.ID, changes)
		if err := s.repo.AppendChangeRecord(ctx, rec); err != nil {
			log.Error("Cannot log changes", slog.Any("error", err))
		}

		for _, c := range changes {
			fmt.Fprintf(s.out, "%s (Course: %s)\n", c, course.Name)
		}
	}

	tree.Fprint(s.out, latest)

	if err := s.repo.SaveTree(ctx, course.ID, latest); err != nil {
		return nil, fmt.Errorf("cannot save tree: %w", err)
	}

	return changes, nil
}

func newChangeRecord(courseID int, changes []entity.Change) *entity.ChangeRecord {
	now := time.Now()

	return &entity.ChangeRecord{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		ChangeNo:  now.Format(time.RFC3339Nano),
		Message:   entity.Summarize(changes),
		Timestamp: now,
		Changes:   entity.NewChangeItems(changes),
	}
}
