// Package eventsink forwards location change events to Kafka.
package eventsink

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/metrics"
	"github.com/joeblew999/plat-iftar/internal/service"
)

// Writer is the subset of kafka.Writer the forwarder needs. Tests swap it.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Forwarder subscribes to the event bus and writes each event as one
// message keyed by location ID. It implements suture.Service.
type Forwarder struct {
	bus          *service.EventBus
	writer       Writer
	writeTimeout time.Duration
}

// NewKafkaWriter creates a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// NewForwarder wraps w. Serve closes w when its context ends.
func NewForwarder(bus *service.EventBus, w Writer) *Forwarder {
	return &Forwarder{bus: bus, writer: w, writeTimeout: 5 * time.Second}
}

// Serve implements suture.Service. Write failures are logged and counted;
// the event is dropped.
func (f *Forwarder) Serve(ctx context.Context) error {
	log := logging.With("event-forwarder")
	events := f.bus.Subscribe()
	defer f.bus.Unsubscribe(events)

	log.Info().Msg("forwarding location events")
	for {
		select {
		case <-ctx.Done():
			if err := f.writer.Close(); err != nil {
				log.Warn().Err(err).Msg("close writer failed")
			}
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return errors.New("event bus closed")
			}
			if err := f.write(ctx, e); err != nil {
				metrics.EventsExported.WithLabelValues("error").Inc()
				log.Warn().Err(err).Str("id", e.ID).Str("action", e.Action).Msg("export event failed")
				continue
			}
			metrics.EventsExported.WithLabelValues("ok").Inc()
		}
	}
}

func (f *Forwarder) write(ctx context.Context, e service.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, f.writeTimeout)
	defer cancel()
	return f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.ID),
		Value: value,
		Time:  e.At,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(e.Action)},
		},
	})
}

func (f *Forwarder) String() string { return "event-forwarder" }
