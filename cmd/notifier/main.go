// The notifier drains the lifecycle events queue and forwards chat-worthy
// events to the game server's webhook. It runs alongside the API so a slow
// webhook never blocks an order operation.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/aws"
	"github.com/thornegames/orderboard/internal/config"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	settings, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load settings")
	}
	if settings.EventsQueueURL == "" {
		log.Fatal("events queue url not configured")
	}
	if settings.NotifyWebhookURL == "" {
		log.Fatal("notify webhook url not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.WithError(err).Fatal("init aws clients")
	}

	p := NewProcessor(clients.SQS, settings.EventsQueueURL, settings.NotifyWebhookURL,
		int32(settings.NotifyPollWait.Seconds()), log)

	log.WithField("queue", settings.EventsQueueURL).Info("notifier started")
	p.Run(ctx)
	log.Info("stopped")
}
