// Package notify delivers booking and order lifecycle events to an external
// notification transport. Delivery is best-effort and fully decoupled from
// the owning transaction: events are queued to background workers, a full
// queue drops the event, and delivery failures are logged and swallowed.
package notify

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/camelia-studio/camelia/internal/domain/booking"
	"github.com/camelia-studio/camelia/internal/domain/order"
)

// Event is one notification to deliver.
type Event struct {
	// Type names the lifecycle event, e.g. "booking.created".
	Type string
	// Recipient is the target identity: the booking owner's user ID or a
	// seller ID. Empty for guest recipients, whose contact lives in Fields.
	Recipient string
	// Subject is the human-readable entity handle (booking/order number).
	Subject string
	// Fields carries event-specific details for the transport to render.
	Fields map[string]string
}

// Sink is the external delivery transport collaborator.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// LogSink is the default Sink: it records events in the service log. It
// stands in for push/email transports, which are external to this core.
type LogSink struct {
	lg *zap.Logger
}

// NewLogSink creates a LogSink writing to the given logger.
func NewLogSink(lg *zap.Logger) *LogSink {
	return &LogSink{lg: lg}
}

// Deliver logs the event.
func (s *LogSink) Deliver(_ context.Context, ev Event) error {
	s.lg.Info("notification",
		zap.String("type", ev.Type),
		zap.String("recipient", ev.Recipient),
		zap.String("subject", ev.Subject),
		zap.Any("fields", ev.Fields),
	)
	return nil
}

// Dispatcher fans events out to a Sink through a bounded queue of worker
// goroutines. It satisfies booking.Notifier and order.Notifier.
type Dispatcher struct {
	sink    Sink
	lg      *zap.Logger
	timeout time.Duration

	queue chan Event
	wg    sync.WaitGroup

	tracer     trace.Tracer
	dispatched metric.Int64Counter
	dropped    metric.Int64Counter
}

var (
	_ booking.Notifier = (*Dispatcher)(nil)
	_ order.Notifier   = (*Dispatcher)(nil)
)

// NewDispatcher starts a Dispatcher with the given number of delivery
// workers and queue capacity.
func NewDispatcher(lg *zap.Logger, sink Sink, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}
	meter := otel.Meter("camelia.notify")
	dispatched, _ := meter.Int64Counter("notify.events.dispatched",
		metric.WithDescription("Events accepted into the delivery queue"))
	dropped, _ := meter.Int64Counter("notify.events.dropped",
		metric.WithDescription("Events dropped because the queue was full"))
	d := &Dispatcher{
		sink:       sink,
		lg:         lg,
		timeout:    5 * time.Second,
		queue:      make(chan Event, buffer),
		tracer:     otel.Tracer("camelia.notify"),
		dispatched: dispatched,
		dropped:    dropped,
	}
	d.wg.Add(workers)
	for range workers {
		go d.worker()
	}
	return d
}

// Dispatch queues an event without blocking. When the queue is full the
// event is dropped and logged; the caller's transaction has already
// committed, so losing a notification must never fail the operation.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.queue <- ev:
		d.dispatched.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("event.type", ev.Type)))
	default:
		d.dropped.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("event.type", ev.Type)))
		d.lg.Warn("notification queue full, dropping event",
			zap.String("type", ev.Type),
			zap.String("subject", ev.Subject),
		)
	}
}

// Close stops accepting events and waits for the workers to drain the queue.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		ctx, span := d.tracer.Start(ctx, "notify.deliver",
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(attribute.String("event.type", ev.Type)),
		)
		if err := d.sink.Deliver(ctx, ev); err != nil {
			span.RecordError(err)
			d.lg.Error("notification delivery failed",
				zap.String("type", ev.Type),
				zap.String("subject", ev.Subject),
				zap.Error(err),
			)
		}
		span.End()
		cancel()
	}
}

// BookingCreated implements booking.Notifier.
func (d *Dispatcher) BookingCreated(_ context.Context, b *booking.Booking) {
	d.Dispatch(Event{
		Type:      "booking.created",
		Recipient: b.UserID,
		Subject:   b.Number,
		Fields: map[string]string{
			"service_id": b.ServiceID,
			"start":      b.StartTime.Format(time.RFC3339),
			"email":      b.ClientEmail,
		},
	})
}

// BookingStatusChanged implements booking.Notifier.
func (d *Dispatcher) BookingStatusChanged(_ context.Context, b *booking.Booking, from booking.Status) {
	d.Dispatch(Event{
		Type:      "booking.status_changed",
		Recipient: b.UserID,
		Subject:   b.Number,
		Fields: map[string]string{
			"from":  string(from),
			"to":    string(b.Status),
			"email": b.ClientEmail,
		},
	})
}

// OrderPlaced implements order.Notifier. One event is dispatched per seller
// with a stake in the order.
func (d *Dispatcher) OrderPlaced(_ context.Context, o *order.Order, notice order.SellerNotice) {
	fields := map[string]string{
		"items": strconv.Itoa(len(notice.Items)),
		"total": o.Total.StringFixed(2),
	}
	for i, id := range notice.LowStock {
		fields["low_stock_"+strconv.Itoa(i)] = id
	}
	d.Dispatch(Event{
		Type:      "order.placed",
		Recipient: notice.SellerID,
		Subject:   o.Number,
		Fields:    fields,
	})
}

// OrderStatusChanged implements order.Notifier.
func (d *Dispatcher) OrderStatusChanged(_ context.Context, o *order.Order, from order.Status) {
	d.Dispatch(Event{
		Type:      "order.status_changed",
		Recipient: o.UserID,
		Subject:   o.Number,
		Fields: map[string]string{
			"from":  string(from),
			"to":    string(o.Status),
			"email": o.CustomerEmail,
		},
	})
}
