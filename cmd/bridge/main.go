package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/bridge"
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/broker"
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/config"
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/stasis"
)

// feedLine is one newline-delimited JSON event on stdin. The source
// field selects the topic: "channel" and "app" carry a JSON event
// document, "ami" carries a manager event name and its flat field blob.
type feedLine struct {
	Source      string         `json:"source"`
	Event       map[string]any `json:"event"`
	Name        string         `json:"name"`
	Fields      string         `json:"fields"`
	Application string         `json:"application"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file (environment variables are used when unset)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	applyLogLevel(log, cfg.LogLevel)

	store := config.NewStore(cfg)

	registry := broker.NewConnectionRegistry(broker.DefaultDialer)
	defer registry.Close()
	publisher := broker.NewPublisher(registry)

	channelTopic := stasis.NewTopic("channel:all")
	managerTopic := stasis.NewTopic("manager:all")

	b := bridge.New(store, publisher, channelTopic, managerTopic, log)
	if err := b.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start bridge")
	}

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		feed(log, b, channelTopic, managerTopic)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	running := true
	for running {
		select {
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				reload(log, store, *configPath)
				continue
			}
			log.WithField("signal", sig).Info("Shutting down")
			running = false
		case <-feedDone:
			log.Info("Event feed closed, shutting down")
			running = false
		}
	}

	b.Stop()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.LoadFromEnv()
}

func applyLogLevel(log *logrus.Logger, level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		// Validate already rejected unknown levels; keep the old one.
		log.WithField("log_level", level).Warn("Unknown log level, keeping current")
		return
	}
	log.SetLevel(parsed)
}

func reload(log *logrus.Logger, store *config.Store, path string) {
	cfg, err := loadConfig(path)
	if err != nil {
		log.WithError(err).Error("Reload failed, keeping current configuration")
		return
	}
	store.Replace(cfg)
	applyLogLevel(log, cfg.LogLevel)
	log.Info("Configuration reloaded")
}

// feed pumps newline-delimited JSON events from stdin onto the topics
// until EOF. Applications are registered on first sight.
func feed(log *logrus.Logger, b *bridge.Bridge, channelTopic, managerTopic *stasis.Topic) {
	registered := make(map[string]bool)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var fl feedLine
		if err := json.Unmarshal(line, &fl); err != nil {
			log.WithError(err).Warn("Skipping malformed feed line")
			continue
		}

		switch fl.Source {
		case "channel":
			channelTopic.Publish(fl.Event)
		case "ami":
			managerTopic.Publish(stasis.ManagerMessage{Event: fl.Name, Fields: fl.Fields})
		case "app":
			if !registered[fl.Application] {
				if err := b.RegisterApplication(fl.Application); err != nil {
					log.WithError(err).WithField("application", fl.Application).Warn("Skipping application event")
					continue
				}
				registered[fl.Application] = true
			}
			b.DispatchApplicationEvent(fl.Application, fl.Event)
		default:
			log.WithField("source", fl.Source).Warn("Skipping feed line with unknown source")
		}
	}

	if err := scanner.Err(); err != nil {
		log.WithError(err).Error("Event feed failed")
	}
}
