package orders

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

// Sender delivers a rendered notification.
type Sender interface {
	Send(ctx context.Context, n domain.OrderNotification) error
}

type DispatcherConfig struct {
	Recipient   string
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
	// LookupConcurrency bounds the product lookups of a single order.
	LookupConcurrency int
}

func (c *DispatcherConfig) setDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.LookupConcurrency <= 0 {
		c.LookupConcurrency = 4
	}
}

var _ Notifier = (*Dispatcher)(nil)

// Dispatcher sends order confirmations from background workers so that a
// checkout never waits on, or fails because of, its notification.
type Dispatcher struct {
	cfg      DispatcherConfig
	users    UserLookup
	products ProductLookup
	sender   Sender
	metrics  *Metrics
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan domain.Order
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, users UserLookup, products ProductLookup, sender Sender, metrics *Metrics, logger *slog.Logger) *Dispatcher {
	cfg.setDefaults()
	return &Dispatcher{
		cfg:      cfg,
		users:    users,
		products: products,
		sender:   sender,
		metrics:  metrics,
		logger:   logger,
		queue:    make(chan domain.Order, cfg.QueueSize),
	}
}

// Start launches the workers. They run until Close is called; ctx is the
// parent of every lookup and send.
func (d *Dispatcher) Start(ctx context.Context) {
	for range d.cfg.Workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for order := range d.queue {
				d.notify(ctx, order)
			}
		}()
	}
}

// Dispatch queues an order for confirmation. It reports false when the order
// was dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(order domain.Order) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped, dispatcher closed", "order_id", order.ID)
		d.metrics.notification(context.Background(), "dropped")
		return false
	}

	select {
	case d.queue <- order:
		return true
	default:
		d.logger.Warn("notification dropped, queue full", "order_id", order.ID, "queue_size", d.cfg.QueueSize)
		d.metrics.notification(context.Background(), "dropped")
		return false
	}
}

// Close stops accepting orders and waits for the queued ones to be sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) notify(ctx context.Context, order domain.Order) {
	email, items := d.enrich(ctx, order)

	n, err := renderConfirmation(order, email, items, d.cfg.Recipient)
	if err != nil {
		d.logger.Error("failed to render order confirmation", "error", err, "order_id", order.ID)
		d.metrics.notification(ctx, "failed")
		return
	}
	n.Timestamp = time.Now().UTC()

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, n); err != nil {
		d.logger.Error("failed to send order confirmation", "error", err, "order_id", order.ID)
		d.metrics.notification(ctx, "failed")
		return
	}

	d.logger.Info("order confirmation sent", "order_id", order.ID, "to", n.To)
	d.metrics.notification(ctx, "sent")
}

// enrich looks up the customer email and the product of every line. Lookup
// failures are logged and replaced with placeholders.
func (d *Dispatcher) enrich(ctx context.Context, order domain.Order) (string, []enrichedItem) {
	items := make([]enrichedItem, len(order.Items))
	var email string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.LookupConcurrency)

	g.Go(func() error {
		user, err := d.users.GetByID(gctx, order.UserID)
		if err != nil {
			d.logger.Warn("user lookup failed", "error", err, "user_id", order.UserID)
			return nil
		}
		if user != nil {
			email = user.Email
		}
		return nil
	})

	for i, item := range order.Items {
		items[i] = enrichedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Name:      unavailableProduct,
			Price:     decimal.Zero,
		}
		g.Go(func() error {
			p, err := d.products.GetByID(gctx, item.ProductID)
			if err != nil {
				d.logger.Warn("product lookup failed", "error", err, "product_id", item.ProductID)
				return nil
			}
			if p != nil {
				items[i].Name = p.Name
				items[i].Price = p.Price
			}
			return nil
		})
	}

	_ = g.Wait()
	return email, items
}
