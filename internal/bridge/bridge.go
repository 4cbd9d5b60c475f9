// Package bridge connects the in-process event sources to the broker:
// it subscribes to the channel and manager topics, routes per-application
// events, and runs every event through normalize, filter, route and
// publish.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/config"
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/events"
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/filters"
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/stasis"
)

// Publisher sends one envelope under one configuration snapshot.
// Implemented by broker.Publisher.
type Publisher interface {
	Publish(ctx context.Context, cfg *config.Config, env *events.Envelope, headers map[string]string, routingKey string) error
}

// Bridge ties the three event sources to the publisher. Each event is
// handled under exactly one configuration snapshot, taken when its
// handler starts; errors are terminal for the event, logged and
// dropped, never retried.
type Bridge struct {
	store     *config.Store
	publisher Publisher
	log       *logrus.Logger

	channelTopic *stasis.Topic
	managerTopic *stasis.Topic
	apps         *stasis.AppRouter

	mu         sync.Mutex
	started    bool
	channelSub *stasis.Subscription
	managerSub *stasis.Subscription
}

// New creates a bridge consuming from the two topics. It does not
// subscribe until Start.
func New(store *config.Store, publisher Publisher, channelTopic, managerTopic *stasis.Topic, log *logrus.Logger) *Bridge {
	return &Bridge{
		store:        store,
		publisher:    publisher,
		log:          log,
		channelTopic: channelTopic,
		managerTopic: managerTopic,
		apps:         stasis.NewAppRouter(),
	}
}

// Start subscribes to the topics enabled by the current configuration.
// The publish switches are also re-checked per event, so a reload can
// mute a source; a switch turned on after Start takes effect on the
// next Start.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return fmt.Errorf("bridge is already started")
	}

	cfg := b.store.Snapshot()
	if cfg.Publish.ChannelEvents {
		b.channelSub = b.channelTopic.Subscribe(b.handleChannelEvent)
	}
	if cfg.Publish.AMIEvents {
		b.managerSub = b.managerTopic.Subscribe(b.handleManagerEvent)
	}
	b.started = true

	b.log.WithFields(logrus.Fields{
		"channel_events": cfg.Publish.ChannelEvents,
		"ami_events":     cfg.Publish.AMIEvents,
	}).Info("bridge started")
	return nil
}

// Stop detaches from the topics and unregisters every application. It
// returns only after all in-flight handlers have finished, so no
// publish is attempted once Stop has returned.
func (b *Bridge) Stop() {
	b.mu.Lock()
	channelSub, managerSub := b.channelSub, b.managerSub
	b.channelSub, b.managerSub = nil, nil
	b.started = false
	b.mu.Unlock()

	if channelSub != nil {
		channelSub.UnsubscribeAndJoin()
	}
	if managerSub != nil {
		managerSub.UnsubscribeAndJoin()
	}
	b.apps.Close()

	b.log.Info("bridge stopped")
}

// RegisterApplication subscribes the named application so its events
// reach the broker. An empty name is a client error.
func (b *Bridge) RegisterApplication(name string) error {
	if name == "" {
		return fmt.Errorf("application name is required")
	}
	err := b.apps.Register(name, func(sub *stasis.Subscription, event any) {
		if sub.Final(event) {
			return
		}
		doc, ok := event.(map[string]any)
		if !ok {
			b.log.WithField("application", name).Debug("dropping non-document application event")
			return
		}
		b.handleApplicationEvent(name, doc)
	})
	if err != nil {
		return err
	}
	b.log.WithField("application", name).Info("application registered")
	return nil
}

// UnregisterApplication removes the named application. It joins the
// application's delivery goroutine, so the name is immediately
// reusable. An empty name is a client error.
func (b *Bridge) UnregisterApplication(name string) error {
	if name == "" {
		return fmt.Errorf("application name is required")
	}
	b.apps.Unregister(name)
	b.log.WithField("application", name).Info("application unregistered")
	return nil
}

// DispatchApplicationEvent delivers an event document to the named
// application. Events for unregistered applications are dropped.
func (b *Bridge) DispatchApplicationEvent(name string, doc map[string]any) {
	b.apps.Dispatch(name, doc)
}

func (b *Bridge) handleChannelEvent(sub *stasis.Subscription, event any) {
	if sub.Final(event) {
		return
	}
	doc, ok := event.(map[string]any)
	if !ok {
		b.log.Debug("dropping non-document channel event")
		return
	}

	cfg := b.store.Snapshot()
	if !cfg.Publish.ChannelEvents {
		return
	}

	env, ok := events.FromChannel(doc)
	if !ok {
		b.log.Debug("dropping channel event without a type")
		return
	}

	filter := filters.NewEventFilter(&cfg.Filters)
	if !filter.ShouldPublish(env.Name, events.Variable(doc)) {
		b.log.WithField("event", env.Name).Debug("channel event filtered out")
		return
	}

	b.publish(cfg, env, events.PrefixChannel, env.Name, events.HeaderSet(env.Name, events.CategoryStasis, ""))
}

func (b *Bridge) handleManagerEvent(sub *stasis.Subscription, event any) {
	if sub.Final(event) {
		return
	}
	msg, ok := event.(stasis.ManagerMessage)
	if !ok {
		b.log.Debug("dropping non-manager message on the manager topic")
		return
	}

	cfg := b.store.Snapshot()
	if !cfg.Publish.AMIEvents {
		return
	}

	env, ok := events.FromManager(msg.Event, msg.Fields)
	if !ok {
		b.log.Debug("dropping manager message without an event name")
		return
	}

	filter := filters.NewEventFilter(&cfg.Filters)
	if !filter.ShouldPublish(env.Name, "") {
		b.log.WithField("event", env.Name).Debug("manager event filtered out")
		return
	}

	b.publish(cfg, env, events.PrefixAMI, env.Name, events.HeaderSet(env.Name, events.CategoryAMI, ""))
}

func (b *Bridge) handleApplicationEvent(app string, doc map[string]any) {
	cfg := b.store.Snapshot()

	env, ok := events.FromApplication(app, doc)
	if !ok {
		b.log.WithField("application", app).Debug("dropping application event without a type")
		return
	}

	filter := filters.NewEventFilter(&cfg.Filters)
	if !filter.ShouldPublish(env.Name, events.Variable(doc)) {
		b.log.WithFields(logrus.Fields{
			"application": app,
			"event":       env.Name,
		}).Debug("application event filtered out")
		return
	}

	// Application events route by application name, not event name.
	b.publish(cfg, env, events.PrefixApplication, app, events.HeaderSet(env.Name, events.CategoryStasis, app))
}

func (b *Bridge) publish(cfg *config.Config, env *events.Envelope, prefix, suffix string, headers map[string]string) {
	routingKey, err := events.RoutingKey(prefix, suffix)
	if err != nil {
		b.log.WithError(err).WithField("event", env.Name).Error("failed to build routing key")
		return
	}

	if err := b.publisher.Publish(context.Background(), cfg, env, headers, routingKey); err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"event":       env.Name,
			"routing_key": routingKey,
		}).Error("failed to publish event")
	}
}
