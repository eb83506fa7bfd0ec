// Package release retries compensating releases that failed inline, so a
// booking that never persisted cannot keep its days held forever.
package release

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
	availabilityerrors "tourbook/internal/availability/errors"
	"tourbook/pkg/clock"
	"tourbook/pkg/config"
	mongotx "tourbook/pkg/db/mongo"
	"tourbook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Pending_releases"

type Queue interface {
	Enqueue(ctx context.Context, task *model.ReleaseTask) error
	Due(ctx context.Context, now time.Time, limit int) ([]*model.ReleaseTask, error)
	Reschedule(ctx context.Context, id string, attempts int, lastErr string, next time.Time) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

func prepare(task *model.ReleaseTask, now time.Time) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.NextAttemptAt.IsZero() {
		task.NextAttemptAt = now
	}
}

type mongoQueue struct {
	cfg        *config.Config
	clock      clock.Clock
	collection *mongo.Collection
}

func NewMongoQueue(cfg *config.Config, clk clock.Clock) Queue {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoQueue{
		cfg:        cfg,
		clock:      clk,
		collection: db.Collection(CollectionName),
	}
}

func (q *mongoQueue) Enqueue(ctx context.Context, task *model.ReleaseTask) error {
	ctx, cancel := mongotx.WithTimeout(ctx, q.cfg.WriteTimeout)
	defer cancel()

	prepare(task, q.clock.Now())
	if _, err := q.collection.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue release task: %w", err)
	}
	return nil
}

func (q *mongoQueue) Due(ctx context.Context, now time.Time, limit int) ([]*model.ReleaseTask, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, q.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := q.collection.Find(ctx, bson.M{"next_attempt_at": bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find due release tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*model.ReleaseTask
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode release tasks: %w", err)
	}
	return tasks, nil
}

func (q *mongoQueue) Reschedule(ctx context.Context, id string, attempts int, lastErr string, next time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, q.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"attempts":        attempts,
		"last_error":      lastErr,
		"next_attempt_at": next,
	}}
	result, err := q.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to reschedule release task: %w", err)
	}
	if result.MatchedCount == 0 {
		return availabilityerrors.ErrReleaseTaskNotFound
	}
	return nil
}

func (q *mongoQueue) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, q.cfg.WriteTimeout)
	defer cancel()

	if _, err := q.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete release task: %w", err)
	}
	return nil
}

func (q *mongoQueue) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, q.cfg.ReadTimeout)
	defer cancel()

	count, err := q.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count release tasks: %w", err)
	}
	return count, nil
}

type memoryQueue struct {
	mu    sync.Mutex
	clock clock.Clock
	tasks map[string]*model.ReleaseTask
}

func NewMemoryQueue(clk clock.Clock) Queue {
	return &memoryQueue{clock: clk, tasks: make(map[string]*model.ReleaseTask)}
}

func (q *memoryQueue) Enqueue(_ context.Context, task *model.ReleaseTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	prepare(task, q.clock.Now())
	if _, exists := q.tasks[task.ID]; exists {
		return errors.New("release task already queued: " + task.ID)
	}
	c := *task
	q.tasks[task.ID] = &c
	return nil
}

func (q *memoryQueue) Due(_ context.Context, now time.Time, limit int) ([]*model.ReleaseTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*model.ReleaseTask
	for _, t := range q.tasks {
		if !t.NextAttemptAt.After(now) {
			c := *t
			due = append(due, &c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (q *memoryQueue) Reschedule(_ context.Context, id string, attempts int, lastErr string, next time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return availabilityerrors.ErrReleaseTaskNotFound
	}
	t.Attempts = attempts
	t.LastError = lastErr
	t.NextAttemptAt = next
	return nil
}

func (q *memoryQueue) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.tasks, id)
	return nil
}

func (q *memoryQueue) Count(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.tasks)), nil
}
