// Package snapshot persists course trees and change history in redis.
//
// Every course keeps two tree slots (v1/v2) plus an active-version pointer.
// A save writes the fresh tree to the standby slot and then flips the
// pointer, so a reader always sees either the complete old snapshot or the
// complete new one, never a partial replace.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ppdms/tree-eclass/internal/entity"
)

const (
	KeyVersion1      = "v1"
	KeyVersion2      = "v2"
	KeyActiveVersion = "av"   // STRING per course: av:course_id -> v1|v2
	KeyTree          = "tree" // STRING per course: tree:ver:course_id -> JSON snapshot
	KeyHistory       = "hist" // LIST per course: hist:course_id -> JSON change records
	KeyCookies       = "ck"   // STRING: serialized session cookies

	KeySeparator = ":"
)

type snapshotRepository struct {
	cl  *redis.Client
	log *slog.Logger
}

func NewSnapshotRepository(cl *redis.Client, log *slog.Logger) *snapshotRepository {
	return &snapshotRepository{
		cl:  cl,
		log: log.With(slog.String("item", "SnapshotRepository")),
	}
}

// LoadTree returns the active snapshot of a course, or nil when the course
// has never been checked. Callers can treat nil as "no previous snapshot"
// without branching on errors.
func (r *snapshotRepository) LoadTree(ctx context.Context, courseID int) (*entity.Node, error) {
	ver, _, err := r.getVersions(ctx, courseID)
	if err != nil {
		return nil, err
	}

	data, err := r.cl.Get(ctx, getKey(KeyTree, ver, strconv.Itoa(courseID))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("cannot load tree for course %d: %w", courseID, err)
	}

	var root entity.Node
	if err := json.Unmarshal([]byte(data), &root); err != nil {
		return nil, fmt.Errorf("cannot decode tree for course %d: %w", courseID, err)
	}

	return &root, nil
}

// SaveTree replaces the stored snapshot of a course: write to the standby
// slot, flip the active-version pointer, then drop the old slot.
func (r *snapshotRepository) SaveTree(ctx context.Context, courseID int, root *entity.Node) error {
	verActive, verStandby, err := r.getVersions(ctx, courseID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("cannot encode tree for course %d: %w", courseID, err)
	}

	course := strconv.Itoa(courseID)

	if err := r.cl.Set(ctx, getKey(KeyTree, verStandby, course), data, 0).Err(); err != nil {
		return fmt.Errorf("cannot save tree for course %d: %w", courseID, err)
	}

	if err := r.cl.Set(ctx, getKey(KeyActiveVersion, course), verStandby, 0).Err(); err != nil {
		return fmt.Errorf("cannot switch tree version for course %d: %w", courseID, err)
	}

	if err := r.cl.Del(ctx, getKey(KeyTree, verActive, course)).Err(); err != nil {
		r.log.Error("Cannot drop old tree slot", slog.Int("course_id", courseID), slog.Any("error", err))
	}

	r.log.Info("Saved tree", slog.Int("course_id", courseID), slog.String("version", verStandby))

	return nil
}

// AppendChangeRecord pushes one check result onto the course history.
func (r *snapshotRepository) AppendChangeRecord(ctx context.Context, rec *entity.ChangeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot encode change record: %w", err)
	}

	if err := r.cl.RPush(ctx, getKey(KeyHistory, strconv.Itoa(rec.CourseID)), data).Err(); err != nil {
		return fmt.Errorf("cannot append change record for course %d: %w", rec.CourseID, err)
	}

	return nil
}

// ChangeRecords returns the most recent change records of a course, newest
// first. limit <= 0 returns the whole history.
func (r *snapshotRepository) ChangeRecords(ctx context.Context, courseID, limit int) ([]*entity.ChangeRecord, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	items, err := r.cl.LRange(ctx, getKey(KeyHistory, strconv.Itoa(courseID)), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot load change records for course %d: %w", courseID, err)
	}

	records := make([]*entity.ChangeRecord, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var rec entity.ChangeRecord
		if err := json.Unmarshal([]byte(items[i]), &rec); err != nil {
			return nil, fmt.Errorf("cannot decode change record: %w", err)
		}

		records = append(records, &rec)
	}

	return records, nil
}

func (r *snapshotRepository) LoadCookies(ctx context.Context) (string, error) {
	data, err := r.cl.Get(ctx, KeyCookies).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}

		return "", fmt.Errorf("cannot load cookies: %w", err)
	}

	return data, nil
}

func (r *snapshotRepository) SaveCookies(ctx context.Context, cookies string) error {
	if err := r.cl.Set(ctx, KeyCookies, cookies, 0).Err(); err != nil {
		return fmt.Errorf("cannot save cookies: %w", err)
	}

	return nil
}

// getVersions returns the active and standby tree slots of a course. A
// course that was never saved starts on v1.
func (r *snapshotRepository) getVersions(ctx context.Context, courseID int) (string, string, error) {
	ver, err := r.cl.Get(ctx, getKey(KeyActiveVersion, strconv.Itoa(courseID))).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", "", fmt.Errorf("cannot get active version for course %d: %w", courseID, err)
	}

	if ver == KeyVersion2 {
		return KeyVersion2, KeyVersion1, nil
	}

	return KeyVersion1, KeyVersion2, nil
}

func getKey(keys ...string) string {
	return strings.Join(keys, KeySeparator)
}
