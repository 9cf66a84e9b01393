package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/ppdms/tree-eclass/internal/adapter/eclass"
	"github.com/ppdms/tree-eclass/internal/adapter/mailadapter"
	"github.com/ppdms/tree-eclass/internal/config"
	httphandler "github.com/ppdms/tree-eclass/internal/handler/http"
	"github.com/ppdms/tree-eclass/internal/repository/snapshot"
	"github.com/ppdms/tree-eclass/internal/service/checker"
	"github.com/ppdms/tree-eclass/internal/service/tree"
)

const (
	shutdownTimeout = 5 * time.Second
	checkTimeout    = 30 * time.Minute
)

type App struct {
	cfgPath string
	cfg     *config.Config
	srv     *http.Server
	checker *checker.CheckerService
	cancel  context.CancelFunc
	log     *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

func (a *App) Start() {
	a.cfg = config.MustLoad(a.cfgPath)

	opt, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		panic(err)
	}

	rdb := redis.NewClient(opt)
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		panic(err)
	}

	lo := &slog.HandlerOptions{}
	switch a.cfg.LogLevel {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		panic("unknown log level")
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, lo))
	a.log = log

	fs := afero.NewOsFs()

	repo := snapshot.NewSnapshotRepository(rdb, log)

	client, err := eclass.NewClient(&a.cfg.Eclass, repo, fs, log)
	if err != nil {
		panic(err)
	}

	builder := tree.NewBuilder(client, fs, log)

	renderer, err := mailadapter.NewRenderer()
	if err != nil {
		panic(err)
	}
	mailer := mailadapter.NewMailer(&a.cfg.SMTP, renderer, log)

	// Download folders are kept under the data dir unless absolute.
	courses := a.cfg.Courses
	for i := range courses {
		if !filepath.IsAbs(courses[i].DownloadFolder) {
			courses[i].DownloadFolder = filepath.Join(a.cfg.Checker.DataDir, courses[i].DownloadFolder)
		}
	}

	a.checker = checker.NewCheckerService(builder, repo, mailer, fs, courses, a.cfg.Eclass.CourseURL, os.Stdout, log)

	http.Handle("GET /courses/{$}", httphandler.NewCoursesHandler(courses, repo, log))
	http.Handle("POST /check/{$}", httphandler.NewCheckHandler(a.checker, log))
	http.Handle("POST /check/{id}/{$}", httphandler.NewCourseCheckHandler(a.checker, log))
	http.Handle("GET /history/{id}/{$}", httphandler.NewHistoryHandler(repo, log))

	a.srv = &http.Server{
		Addr: a.cfg.Listen,
	}

	go func() {
		log.Info("Start listen", slog.String("addr", a.cfg.Listen))

		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Could not serve", slog.String("listen_addr", a.cfg.Listen), slog.Any("error", err))
			os.Exit(2)
		}
	}()

	schedulerCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.schedule(schedulerCtx)
}

// schedule runs a check immediately and then one per configured interval.
func (a *App) schedule(ctx context.Context) {
	interval := time.Duration(a.cfg.Checker.Interval)
	a.log.Info("Scheduler started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.runOnce(ctx)

		select {
		case <-ctx.Done():
			a.log.Info("Scheduler stopped")

			return
		case <-ticker.C:
		}
	}
}

func (a *App) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if _, err := a.checker.CheckAll(ctx); err != nil {
		a.log.Error("Check cycle failed", slog.Any("error", err))
	}
}

// Check runs one cycle on demand and prints the detected changes.
func (a *App) Check() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	fmt.Println("Checking...")

	changes, err := a.checker.CheckAll(ctx)
	if err != nil {
		fmt.Printf("Cannot run check: %s\n", err)

		return
	}

	for name, courseChanges := range changes {
		fmt.Printf("%s: %d change(s)\n", name, len(courseChanges))
	}

	fmt.Println("Done.")
}

func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.srv.Shutdown(ctx)
}
