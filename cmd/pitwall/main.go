package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"

	"justapengu.in/pitwall"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.DebugLevel)

	logger.Infof("Starting pitwall strategy server")

	config, err := pitwall.ReadConfig(configPath)

	if os.IsNotExist(err) {
		logger.Infof("No config found at %s, using defaults", configPath)
		config = pitwall.DefaultConfig()
	} else if err != nil {
		logger.WithError(err).Fatalf("Could not read config at %s", configPath)
	}

	store, err := pitwall.NewBoltStore(config.Store.Path)

	if err != nil {
		logger.WithError(err).Fatal("Could not open store")
	}

	defer store.Close()

	manager := pitwall.NewStrategyManager(store, config.Planner, logger)
	live := pitwall.NewLiveHub(manager, config.Planner, logger)
	handler := pitwall.NewStrategyHandler(manager, live, config.Planner, logger)
	server := pitwall.NewHTTPServer(config.HTTP, handler, logger)

	if err := server.Listen(); err != nil {
		logger.WithError(err).Fatal("Could not start HTTP server")
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	<-c

	ctx, cfn := context.WithTimeout(context.Background(), time.Second*10)
	defer cfn()

	if err := server.Stop(ctx); err != nil {
		logger.WithError(err).Error("Could not stop HTTP server cleanly")
	}

	logger.Infof("Server stopped. Exiting")
}
