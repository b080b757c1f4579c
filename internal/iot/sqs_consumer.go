package iot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI is the part of the SQS client used by the consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// EventHandler processes one message body. A nil error acknowledges it.
type EventHandler interface {
	HandleDeviceEvent(ctx context.Context, body string) error
}

type SQSConsumer struct {
	sqsClient  SQSAPI
	queueURL   string
	handler    EventHandler
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewSQSConsumer(client SQSAPI, queueURL string, handler EventHandler, logger *zap.Logger) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:  client,
		queueURL:   queueURL,
		handler:    handler,
		logger:     logger.Named("sqs_consumer").With(zap.String("queue", queueURL)),
		retryDelay: 5 * time.Second,
	}
}

// Start long-polls the queue until ctx is cancelled. Messages are deleted
// only after the handler accepts them; others reappear after the
// visibility timeout.
func (c *SQSConsumer) Start(ctx context.Context) {
	c.logger.Info("listening")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context cancelled, stopping")
			return
		default:
		}

		result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   60,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn("receive failed", zap.Error(err))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
			}
			continue
		}

		if len(result.Messages) == 0 {
			continue
		}
		c.logger.Debug("messages received", zap.Int("count", len(result.Messages)))

		for _, message := range result.Messages {
			if message.Body == nil {
				c.logger.Warn("empty message body, deleting")
				c.deleteMessage(ctx, message.ReceiptHandle)
				continue
			}

			if err := c.handler.HandleDeviceEvent(ctx, *message.Body); err != nil {
				c.logger.Warn("message processing failed, will be redelivered",
					zap.String("message_id", aws.ToString(message.MessageId)), zap.Error(err))
				continue
			}
			c.deleteMessage(ctx, message.ReceiptHandle)
		}
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		c.logger.Warn("missing receipt handle, cannot delete message")
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.logger.Warn("delete failed", zap.Error(err))
	}
}
