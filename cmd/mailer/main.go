package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"wexcommerce/internal/config"
	"wexcommerce/internal/mailer"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[mailer] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if cfg.AMQPURL == "" {
		logger.Fatalf("AMQP_URL is required")
	}
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Fatalf("connect to amqp: %v", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	consumer := mailer.NewConsumer(conn, cfg.EventsQueue, cfg.MailerWorkers, sender, logger)

	logger.Printf("consuming %s with %d workers", cfg.EventsQueue, cfg.MailerWorkers)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatalf("consumer stopped: %v", err)
	}
	logger.Println("mailer stopped")
}
