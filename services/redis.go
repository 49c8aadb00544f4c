package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docconverter/config"
	"docconverter/models"

	"github.com/redis/go-redis/v9"
)

// statusTTL is how long a job's status hash survives after its last update.
const statusTTL = 24 * time.Hour

// ErrJobNotFound is returned when no status exists for a job id.
var ErrJobNotFound = errors.New("job not found")

func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisQueue carries storage-triggered jobs between the HTTP gateway and the
// workers, and keeps a status hash per job.
type RedisQueue struct {
	client *redis.Client
	cfg    *config.Config
}

func NewRedisQueue(client *redis.Client, cfg *config.Config) *RedisQueue {
	return &RedisQueue{client: client, cfg: cfg}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job models.TriggerJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.cfg.PendingQueue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return q.SetStatus(ctx, job.ID, map[string]interface{}{
		"status": models.StatusQueued,
		"name":   job.Name,
	})
}

// Claim atomically moves the next pending job to the processing list. It
// returns ok=false when nothing arrived within wait.
func (q *RedisQueue) Claim(ctx context.Context, wait time.Duration) (string, bool, error) {
	result, err := q.client.BRPopLPush(ctx, q.cfg.PendingQueue, q.cfg.ProcessingQueue, wait).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return result, true, nil
}

// Ack removes a job from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, payload string) error {
	return q.client.LRem(ctx, q.cfg.ProcessingQueue, 1, payload).Err()
}

func (q *RedisQueue) Requeue(ctx context.Context, payload string) error {
	return q.client.LPush(ctx, q.cfg.PendingQueue, payload).Err()
}

func (q *RedisQueue) Bury(ctx context.Context, payload string) error {
	return q.client.LPush(ctx, q.cfg.FailedQueue, payload).Err()
}

func (q *RedisQueue) Processing(ctx context.Context) ([]string, error) {
	return q.client.LRange(ctx, q.cfg.ProcessingQueue, 0, -1).Result()
}

func (q *RedisQueue) SetStatus(ctx context.Context, jobID string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().Format(time.RFC3339)
	key := q.cfg.StatusKey(jobID)

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, statusTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) Status(ctx context.Context, jobID string) (map[string]string, error) {
	status, err := q.client.HGetAll(ctx, q.cfg.StatusKey(jobID)).Result()
	if err != nil {
		return nil, err
	}
	if len(status) == 0 {
		return nil, ErrJobNotFound
	}
	return status, nil
}
