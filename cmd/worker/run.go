package worker

import (
	"context"
	"errors"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/app/orderworker"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/config"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/rabbitmq"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/storage"
	"github.com/google/uuid"
)

// prefetch is fixed at one: orders are handled strictly one at a time.
const prefetch = 1

// Options are the command-line settings of the worker mode.
type Options struct {
	ConfigPath string
}

// Run consumes the orders queue until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// set up a new logger for the worker with a static request ID for startup logs
	logger := logger.NewLogger("worker")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	store, err := storage.Open(ctx, cfg.Database.URL, logger, storage.Options{})
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to open the store", err)
		return err
	}
	defer store.Close()

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_config_failed", "Invalid RabbitMQ configuration", err)
		return err
	}
	defer rmq.Close()

	processor := orderworker.NewProcessor(store.UoW, store.Products, store.Orders, logger)
	consumer := orderworker.NewConsumer(processor, logger)
	queue := rmq.Queue()

	logger.Info(ctx, "service_started", "Order worker started", map[string]any{
		"queue":    queue,
		"prefetch": prefetch,
		"store":    store.Backend,
	})

	// subscribe loop: resubscribe with backoff whenever the channel drops
	backoff := time.Second
	for ctx.Err() == nil {
		ch, err := rmq.NewConsumerChannel(prefetch)
		if err != nil {
			logger.Error(ctx, "rabbitmq_channel_failed", "Failed to open consumer channel", err)
			sleep(ctx, &backoff)
			continue
		}

		consumerTag := "worker-" + uuid.NewString()
		deliveries, err := ch.Consume(
			queue,
			consumerTag,
			false, // manual ack
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			_ = ch.Close()
			logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming", err)
			sleep(ctx, &backoff)
			continue
		}

		// reset backoff after a successful subscribe
		backoff = time.Second

		err = consumer.Run(ctx, deliveries)

		// stop the broker from pushing more, then release the channel;
		// unacked messages are requeued by the broker
		_ = ch.Cancel(consumerTag, false)
		_ = ch.Close()

		if errors.Is(err, orderworker.ErrDeliveriesClosed) {
			logger.Error(ctx, "consumer_channel_closed", "Deliveries channel closed; resubscribing", err)
			sleep(ctx, &backoff)
		}
	}

	logger.Info(ctx, "graceful_shutdown", "Worker shutdown completed", nil)
	return nil
}

// sleep waits for the current backoff (or ctx) and doubles it up to 30s.
func sleep(ctx context.Context, backoff *time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(*backoff):
	}
	if *backoff < 30*time.Second {
		*backoff *= 2
		if *backoff > 30*time.Second {
			*backoff = 30 * time.Second
		}
	}
}
