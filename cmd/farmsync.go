package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v9"

	"farmsync/internal/booking"
	"farmsync/internal/configuration"
	"farmsync/internal/logger"
	"farmsync/internal/relay"
	"farmsync/internal/server"
	"farmsync/internal/store"
)

func main() {
	if err := runApp(); err != nil {
		os.Exit(1)
	}
}

func runApp() error {
	appContext := context.Background()
	logOutput := io.Writer(os.Stdout)
	appLogger := logger.NewLogger(logger.LevelError, logOutput)

	defer func() {
		if r := recover(); r != nil {
			appLogger.Errorf("APPLICATION CRASHED: %+v", r)
		}
	}()

	config, err := configuration.GetConfig("config.toml")
	if err != nil {
		appLogger.Error("Error getting configuration from config.toml:", err)
		return err
	}

	if config.LogToFile {
		logFile, err := os.OpenFile("farmsync.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			appLogger.Error("Error opening log file:", err)
			return err
		}
		defer func() {
			if err := logFile.Close(); err != nil {
				appLogger.Error("Error closing log file:", err)
			}
		}()
		logOutput = io.MultiWriter(logOutput, logFile)
	}
	appLogger = logger.NewLogger(config.LogLevel, logOutput)

	if config.LogLevel >= logger.LevelDebug {
		conf, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			appLogger.Error("Error marshalling Config to JSON:", err)
			return err
		}
		appLogger.Debugf("Config:\n%s", conf)
	}

	appLogger.Info("Opening collection store at", config.DataDir)
	st, err := store.New(config.DataDir, appLogger)
	if err != nil {
		appLogger.Error("Error opening collection store:", err)
		return err
	}

	var rdb *redis.Client
	if config.RedisAddress != "" {
		rdb = redis.NewClient(&redis.Options{Addr: config.RedisAddress})
		pingCtx, cancel := context.WithTimeout(appContext, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			appLogger.Errorf("Error connecting to Redis at %s, running without cross-process sync, err: %v", config.RedisAddress, err)
			rdb = nil
		}
		cancel()
	}

	bus := relay.NewBus(rdb, config.RedisChannel, appLogger)
	if rdb != nil {
		appLogger.Info("Relaying collection changes on channel:", config.RedisChannel)
		go bus.Run(appContext)
	}

	srv := server.Server{
		Coordinator:   booking.NewCoordinator(st, bus, appLogger),
		Logger:        appLogger,
		AuthSecretKey: config.AuthSecretKey,
		AccessKey:     config.AccessKey,
	}

	httpSrv := &http.Server{
		Handler:      srv.Router(),
		Addr:         config.ServerAddress,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	appLogger.Info("Serving on", httpSrv.Addr)
	return httpSrv.ListenAndServe()
}
