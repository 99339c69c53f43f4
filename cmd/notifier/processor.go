package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	sdksqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/aws"
	"github.com/thornegames/orderboard/internal/events"
)

// notification is the payload forwarded to the game server's chat bridge.
type notification struct {
	Message   string `json:"message"`
	EventType string `json:"event_type"`
	OrderID   string `json:"order_id"`
	Broadcast bool   `json:"broadcast"`
}

// Processor long-polls the events queue and forwards chat-worthy events to
// the webhook. Messages are deleted only after a successful forward, so a
// webhook outage leaves them on the queue for redelivery.
type Processor struct {
	sqs        aws.SQSAPI
	queueURL   string
	webhookURL string
	waitTime   int32
	client     *http.Client
	log        *logrus.Logger
}

// NewProcessor creates a Processor bound to a queue and webhook.
func NewProcessor(sqsClient aws.SQSAPI, queueURL, webhookURL string, waitSeconds int32, log *logrus.Logger) *Processor {
	return &Processor{
		sqs:        sqsClient,
		queueURL:   queueURL,
		webhookURL: webhookURL,
		waitTime:   waitSeconds,
		client:     &http.Client{},
		log:        log,
	}
}

// Run polls until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.poll(ctx); err != nil && ctx.Err() == nil {
			p.log.WithError(err).Warn("poll failed")
		}
	}
}

func (p *Processor) poll(ctx context.Context) error {
	out, err := p.sqs.ReceiveMessage(ctx, &sdksqs.ReceiveMessageInput{
		QueueUrl:            &p.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     p.waitTime,
	})
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}

	for _, msg := range out.Messages {
		if err := p.processMessage(ctx, *msg.Body); err != nil {
			p.log.WithError(err).Warn("process message failed")
			continue
		}
		_, err := p.sqs.DeleteMessage(ctx, &sdksqs.DeleteMessageInput{
			QueueUrl:      &p.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		})
		if err != nil {
			p.log.WithError(err).Warn("delete message failed")
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, body string) error {
	var ev events.Event
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return fmt.Errorf("invalid event body: %w", err)
	}

	msg, ok := formatEvent(ev)
	if !ok {
		// nothing chat-worthy, drop silently
		return nil
	}

	payload, err := json.Marshal(notification{
		Message:   msg,
		EventType: ev.Type,
		OrderID:   ev.OrderID,
		Broadcast: ev.Broadcast,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	p.log.WithFields(logrus.Fields{"type": ev.Type, "order": ev.OrderID}).Info("event forwarded")
	return nil
}

// formatEvent renders the chat line for an event. Only broadcast creations
// and completion-class events reach chat; the rest are queue noise here.
func formatEvent(ev events.Event) (string, bool) {
	name := ev.ActorName
	if name == "" {
		name = ev.Actor
	}
	switch ev.Type {
	case events.TypeOrderCreated:
		if !ev.Broadcast {
			return "", false
		}
		return fmt.Sprintf("%s placed an order: %d x %s at %.2f each", name, ev.Units, ev.ItemKind, ev.Amount), true
	case events.TypeOrderCompleted:
		return fmt.Sprintf("order %s for %s is fully delivered", ev.OrderID, ev.ItemKind), true
	case events.TypeOrderExpired:
		return fmt.Sprintf("order %s for %s expired", ev.OrderID, ev.ItemKind), true
	default:
		return "", false
	}
}
