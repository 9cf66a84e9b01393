package checker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/ppdms/tree-eclass/internal/common"
	"github.com/ppdms/tree-eclass/internal/entity"
)

type stubBuilder struct {
	trees map[string]*entity.Node
	errs  map[string]error
	calls int
}

func (b *stubBuilder) Build(_ context.Context, url, _, _ string, _ *entity.Node) (*entity.Node, error) {
	b.calls++

	if err := b.errs[url]; err != nil {
		return nil, err
	}

	return b.trees[url], nil
}

type stubRepo struct {
	trees   map[int]*entity.Node
	records []*entity.ChangeRecord
	saveErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{trees: make(map[int]*entity.Node)}
}

func (r *stubRepo) LoadTree(_ context.Context, courseID int) (*entity.Node, error) {
	return r.trees[courseID], nil
}

func (r *stubRepo) SaveTree(_ context.Context, courseID int, root *entity.Node) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.trees[courseID] = root

	return nil
}

func (r *stubRepo) AppendChangeRecord(_ context.Context, rec *entity.ChangeRecord) error {
	r.records = append(r.records, rec)

	return nil
}

type stubNotifier struct {
	notified []map[string][]entity.Change
}

func (n *stubNotifier) Notify(_ context.Context, changes map[string][]entity.Change) error {
	n.notified = append(n.notified, changes)

	return nil
}

func courseURL(id int) string {
	return fmt.Sprintf("/course/%d", id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newService(builder *stubBuilder, repo *stubRepo, notifier *stubNotifier, courses []entity.Course) *CheckerService {
	return NewCheckerService(builder, repo, notifier, afero.NewMemMapFs(), courses, courseURL, io.Discard, discardLogger())
}

func TestCheckAllFirstCheck(t *testing.T) {
	courses := []entity.Course{{ID: 1, Name: "Algorithms", DownloadFolder: "data/algo"}}
	builder := &stubBuilder{trees: map[string]*entity.Node{
		"/course/1": {
			Name: "Algorithms", LocalPath: "data/algo",
			Files: []*entity.File{{URL: "/a.pdf", Name: "a.pdf", MD5Hash: "aa"}},
		},
	}}
	repo := newStubRepo()
	notifier := &stubNotifier{}

	srv := newService(builder, repo, notifier, courses)

	changes, err := srv.CheckAll(context.Background())
	require.NoError(t, err)
	require.Len(t, changes["Algorithms"], 1)

	// Snapshot persisted, change record logged, notification sent.
	require.NotNil(t, repo.trees[1])
	require.Len(t, repo.records, 1)
	require.Equal(t, "+ 1 − 0 ~ 0", repo.records[0].Message)
	require.NotEmpty(t, repo.records[0].ID)
	require.Len(t, notifier.notified, 1)
}

func TestCheckAllNoChangesNoNotification(t *testing.T) {
	tree := &entity.Node{
		Name: "Algorithms", LocalPath: "data/algo",
		Files: []*entity.File{{URL: "/a.pdf", Name: "a.pdf", MD5Hash: "aa"}},
	}

	courses := []entity.Course{{ID: 1, Name: "Algorithms", DownloadFolder: "data/algo"}}
	builder := &stubBuilder{trees: map[string]*entity.Node{"/course/1": tree}}
	repo := newStubRepo()
	repo.trees[1] = tree
	notifier := &stubNotifier{}

	srv := newService(builder, repo, notifier, courses)

	changes, err := srv.CheckAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, changes)
	require.Empty(t, repo.records)
	require.Empty(t, notifier.notified)
}

func TestCheckAllIsolatesFailingCourse(t *testing.T) {
	courses := []entity.Course{
		{ID: 1, Name: "Broken", DownloadFolder: "data/broken"},
		{ID: 2, Name: "Working", DownloadFolder: "data/working"},
	}
	builder := &stubBuilder{
		trees: map[string]*entity.Node{
			"/course/2": {
				Name: "Working", LocalPath: "data/working",
				Files: []*entity.File{{URL: "/b.pdf", Name: "b.pdf", MD5Hash: "bb"}},
			},
		},
		errs: map[string]error{"/course/1": fmt.Errorf("network down")},
	}
	repo := newStubRepo()
	notifier := &stubNotifier{}

	srv := newService(builder, repo, notifier, courses)

	changes, err := srv.CheckAll(context.Background())
	require.NoError(t, err)

	// The failing course contributes no changes and does not block the
	// other course or the notification.
	require.NotContains(t, changes, "Broken")
	require.Len(t, changes["Working"], 1)
	require.Nil(t, repo.trees[1])
	require.NotNil(t, repo.trees[2])
	require.Len(t, notifier.notified, 1)
}

func TestCheckCourseUnknownID(t *testing.T) {
	srv := newService(&stubBuilder{}, newStubRepo(), &stubNotifier{}, nil)

	_, err := srv.CheckCourse(context.Background(), 42)
	require.ErrorIs(t, err, common.ErrCourseNotFoundError)
}

func TestCheckCourseSaveFailurePreservesError(t *testing.T) {
	courses := []entity.Course{{ID: 1, Name: "Algorithms", DownloadFolder: "data/algo"}}
	builder := &stubBuilder{trees: map[string]*entity.Node{
		"/course/1": {Name: "Algorithms", LocalPath: "data/algo"},
	}}
	repo := newStubRepo()
	repo.saveErr = fmt.Errorf("redis down")

	srv := newService(builder, repo, &stubNotifier{}, courses)

	_, err := srv.CheckCourse(context.Background(), 1)
	require.Error(t, err)
}
