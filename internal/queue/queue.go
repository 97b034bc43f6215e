// Package queue receives S3 object notifications from an SQS queue.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// API is the subset of the SQS client used by [Queue].
type API interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Message is a received queue message.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          string
}

// Options controls polling.
type Options struct {
	MaxMessages       int32
	WaitTime          time.Duration
	VisibilityTimeout time.Duration
}

// Queue polls one SQS queue.
type Queue struct {
	api  API
	url  string
	opts Options
	log  *slog.Logger
}

// New resolves the URL of the named queue and returns a [Queue] for it.
func New(ctx context.Context, api API, name string, opts Options, log *slog.Logger) (*Queue, error) {
	out, err := api.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("resolving queue %q: %w", name, err)
	}
	log.Info("Resolved queue", "name", name, "url", aws.ToString(out.QueueUrl))
	return &Queue{api: api, url: aws.ToString(out.QueueUrl), opts: opts, log: log}, nil
}

// URL returns the queue URL.
func (q *Queue) URL() string { return q.url }

// Receive long-polls for messages. It returns an empty slice when the wait
// time passes without messages.
func (q *Queue) Receive(ctx context.Context) ([]Message, error) {
	q.log.Debug("Checking queue", "url", q.url)
	out, err := q.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: q.opts.MaxMessages,
		WaitTimeSeconds:     int32(q.opts.WaitTime / time.Second),
		VisibilityTimeout:   int32(q.opts.VisibilityTimeout / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("receiving messages: %w", err)
	}
	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			ID:            aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          aws.ToString(m.Body),
		})
	}
	if len(msgs) > 0 {
		q.log.Debug("Received messages", "count", len(msgs))
	}
	return msgs, nil
}

// Delete removes a processed message from the queue.
func (q *Queue) Delete(ctx context.Context, m Message) error {
	if _, err := q.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(m.ReceiptHandle),
	}); err != nil {
		return fmt.Errorf("deleting message %s: %w", m.ID, err)
	}
	return nil
}

// Release makes a message visible again immediately so it can be received
// again, or moved to the dead-letter queue once its receive count runs out.
func (q *Queue) Release(ctx context.Context, m Message) error {
	if _, err := q.api.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.url),
		ReceiptHandle:     aws.String(m.ReceiptHandle),
		VisibilityTimeout: 0,
	}); err != nil {
		return fmt.Errorf("releasing message %s: %w", m.ID, err)
	}
	return nil
}
