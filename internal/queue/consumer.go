package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MealConsumer drains meal.logged into an append-only activity file.
type MealConsumer struct {
	URL     string
	LogPath string
}

func NewMealConsumer(url, logPath string) *MealConsumer {
	if logPath == "" {
		logPath = filepath.Join("logs", "meal.log")
	}
	return &MealConsumer{URL: url, LogPath: logPath}
}

// Run keeps a consumer attached until ctx is cancelled, reconnecting with
// exponential backoff (capped at 30s).
func (c *MealConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("meal-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("meal-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *MealConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("meal-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(MealLoggedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(MealLoggedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				log.Printf("meal-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // malformed payloads would loop forever if requeued
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *MealConsumer) handle(body []byte) error {
	var ev MealLoggedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return writeMealLine(f, ev)
}

func writeMealLine(w io.Writer, ev MealLoggedEvent) error {
	_, err := fmt.Fprintf(w, "[%s] Meal logged | meal_log_id=%d | user_id=%d | date=%s | meal=%s | food=%q | kcal=%s | total=%s/%s | over=%t\n",
		ev.LoggedAt, ev.MealLogID, ev.UserID, ev.Date, ev.MealType, ev.CategoryName,
		ev.FoodKcal, ev.TotalKcal, ev.TargetKcal, ev.OverTarget)
	if err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
