package kafka

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/logger"
)

// Runner is a consume loop bound to its handler.
type Runner interface {
	Consume(ctx context.Context) error
	Close() error
	Topic() string
}

// Component runs the registered consume loops and owns the producer.
type Component struct {
	cfg      Config
	log      *logger.Logger
	producer interface{ Close() error }
	runners  []Runner

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a Kafka component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("kafka")}
}

// SetProducer hands the producer to the component, which closes it on Stop.
func (c *Component) SetProducer(p interface{ Close() error }) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = p
}

// AddRunner registers a consume loop. Must be called before Start.
func (c *Component) AddRunner(r Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runners = append(c.runners, r)
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Start launches every consume loop in the background.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	for _, r := range c.runners {
		c.wg.Go(func() {
			if err := r.Consume(runCtx); err != nil && !stderrors.Is(err, context.Canceled) {
				c.log.Error("Consumer stopped with error", logger.Fields("topic", r.Topic(), logger.FieldError, err.Error()))
			}
		})
	}
	c.running = true
	c.log.Info("Kafka component started", logger.Fields("consumers", len(c.runners)))
	return nil
}

// Stop ends the consume loops, then closes consumers and the producer.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.cancel()
	c.wg.Wait()

	var errs []error
	for _, r := range c.runners {
		errs = append(errs, r.Close())
	}
	if c.producer != nil {
		errs = append(errs, c.producer.Close())
	}
	c.running = false
	c.log.Info("Kafka component stopped")
	return stderrors.Join(errs...)
}

// Health dials the first broker and asks for cluster metadata.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running, cfg := c.running, c.cfg
	c.mu.Unlock()

	unhealthy := func(msg string) component.Health {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: msg}
	}
	if !running {
		return unhealthy("kafka not started")
	}
	dialer, err := CreateDialer(&cfg)
	if err != nil {
		return unhealthy(fmt.Sprintf("dialer: %v", err))
	}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return unhealthy(fmt.Sprintf("broker unreachable: %v", err))
	}
	defer conn.Close()
	if _, err := conn.Brokers(); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: fmt.Sprintf("broker metadata: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns a summary line for the startup log.
func (c *Component) Describe() component.Description {
	c.mu.Lock()
	defer c.mu.Unlock()
	details := fmt.Sprintf("brokers=%v group=%s", c.cfg.Brokers, c.cfg.GroupID)
	for _, r := range c.runners {
		details += " topic=" + r.Topic()
	}
	if c.cfg.EventsTopic != "" {
		details += " events=" + c.cfg.EventsTopic
	}
	return component.Description{Name: "Kafka", Type: "kafka", Details: details}
}
