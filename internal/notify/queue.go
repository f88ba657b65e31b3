package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ecodeli/ecodeli/internal/model"
)

// QueueName задаёт очередь asynq для уведомлений.
const QueueName = "notifications"

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSink ставит события в очередь asynq для фоновых обработчиков уведомлений.
type QueueSink struct {
	client enqueuer
}

// NewQueueSink создаёт приёмник поверх клиента asynq.
func NewQueueSink(client *asynq.Client) *QueueSink {
	return &QueueSink{client: client}
}

func (q *QueueSink) Name() string {
	return "asynq"
}

// TaskType возвращает тип задачи для события, например event:PaymentCompleted.
func TaskType(t model.EventType) string {
	return "event:" + string(t)
}

// Deliver ставит событие в очередь. Повторная постановка того же события не дублирует задачу.
func (q *QueueSink) Deliver(ctx context.Context, e model.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	task := asynq.NewTask(TaskType(e.Type), payload)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.TaskID(fmt.Sprintf("event-%d", e.ID)),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}
