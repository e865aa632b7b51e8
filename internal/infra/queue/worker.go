package queue

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationProcessor is the fetch/parse pipeline behind the queue.
type NotificationProcessor interface {
	Execute(ctx context.Context, emailAddress, historyID string) error
}

type Worker struct {
	Channel   *amqp.Channel
	Processor NotificationProcessor
}

func NewWorker(ch *amqp.Channel, processor NotificationProcessor) *Worker {
	return &Worker{
		Channel:   ch,
		Processor: processor,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual, safer)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("❌ Failed to register RabbitMQ consumer: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var payload NotificationPayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] Invalid JSON: %s", err)
				// malformed message, reject without requeue
				d.Nack(false, false)
				continue
			}

			log.Printf("📥 [WORKER] Notification for %s (history %s)", payload.EmailAddress, payload.HistoryID)

			if err := w.Processor.Execute(context.Background(), payload.EmailAddress, payload.HistoryID); err != nil {
				log.Printf("❌ [WORKER] Pipeline error: %s", err)
				// Ledger claims make redelivery safe, but a poisoned message
				// should not loop forever: send it to the DLQ.
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] Worker running, waiting on queue '%s'", queueName)
	<-forever
}
