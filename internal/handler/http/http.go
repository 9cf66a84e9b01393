package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/ppdms/tree-eclass/internal/common"
	"github.com/ppdms/tree-eclass/internal/entity"
)

var idRegexp = regexp.MustCompile(`^\d+$`)

type CheckService interface {
	CheckAll(ctx context.Context) (map[string][]entity.Change, error)
	CheckCourse(ctx context.Context, courseID int) ([]entity.Change, error)
}

type HistoryRepository interface {
	ChangeRecords(ctx context.Context, courseID, limit int) ([]*entity.ChangeRecord, error)
}

type courseInfo struct {
	entity.Course
	LastChange *entity.ChangeRecord `json:"last_change,omitempty"`
}

// NewCoursesHandler lists the watched courses with their latest change
// record.
func NewCoursesHandler(courses []entity.Course, repo HistoryRepository, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CoursesHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		infos := make([]courseInfo, 0, len(courses))
		for _, course := range courses {
			info := courseInfo{Course: course}

			records, err := repo.ChangeRecords(r.Context(), course.ID, 1)
			if err != nil {
				log.Error("Cannot get change records", slog.Int("course_id", course.ID), slog.Any("error", err))
			} else if len(records) > 0 {
				info.LastChange = records[0]
			}

			infos = append(infos, info)
		}

		writeJSON(w, infos, log)
	}
}

// NewCheckHandler triggers a full check cycle.
func NewCheckHandler(srv CheckService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CheckHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		changes, err := srv.CheckAll(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, common.ErrCheckHasAlreadyStarted):
				http.Error(w, "Check has already started", http.StatusConflict)
			default:
				log.Error("Check failed", slog.Any("error", err))
				http.Error(w, "Cannot run check", http.StatusInternalServerError)
			}

			return
		}

		writeJSON(w, map[string]int{"changed_courses": len(changes)}, log)
	}
}

// NewCourseCheckHandler triggers a check of a single course.
func NewCourseCheckHandler(srv CheckService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CourseCheckHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !idRegexp.MatchString(id) {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}
		courseID, _ := strconv.Atoi(id)

		changes, err := srv.CheckCourse(r.Context(), courseID)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrCheckHasAlreadyStarted):
				http.Error(w, "Check has already started", http.StatusConflict)
			case errors.Is(err, common.ErrCourseNotFoundError):
				http.Error(w, "Course not found", http.StatusNotFound)
			default:
				log.Error("Course check failed", slog.String("course_id", id), slog.Any("error", err))
				http.Error(w, "Cannot check course", http.StatusInternalServerError)
			}

			return
		}

		writeJSON(w, map[string]int{"changes": len(changes)}, log)
	}
}

// NewHistoryHandler returns the change records of a course, newest first.
func NewHistoryHandler(repo HistoryRepository, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "HistoryHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !idRegexp.MatchString(id) {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}
		courseID, _ := strconv.Atoi(id)

		records, err := repo.ChangeRecords(r.Context(), courseID, 0)
		if err != nil {
			log.Error("Cannot get change records", slog.String("course_id", id), slog.Any("error", err))
			http.Error(w, "Cannot get change records", http.StatusInternalServerError)

			return
		}

		writeJSON(w, records, log)
	}
}

func writeJSON(w http.ResponseWriter, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Cannot encode response", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
