package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/thornegames/orderboard/internal/aws"
)

// Publisher sends lifecycle events to an SQS queue for downstream
// consumers (chat broadcast, audit, webhooks).
type Publisher struct {
	SQS      aws.SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient aws.SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// Publish sends the event as a JSON message. The event type and actor ride
// along as message attributes so consumers can filter without parsing bodies.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	attrs := map[string]sqstypes.MessageAttributeValue{
		"event_type": {
			DataType:    awsString("String"),
			StringValue: awsString(ev.Type),
		},
	}
	if ev.Actor != "" {
		attrs["actor"] = sqstypes.MessageAttributeValue{
			DataType:    awsString("String"),
			StringValue: awsString(ev.Actor),
		}
	}
	if ev.Broadcast {
		attrs["broadcast"] = sqstypes.MessageAttributeValue{
			DataType:    awsString("String"),
			StringValue: awsString("true"),
		}
	}

	_, err = p.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          &p.QueueURL,
		MessageBody:       awsString(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
