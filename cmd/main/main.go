package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"broker-gateway/src/broker"
	"broker-gateway/src/config"
	"broker-gateway/src/interfaces"
	"broker-gateway/src/logger"
	"broker-gateway/src/server"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Optional .env file for secrets (API key, gateway URL)
	_ = godotenv.Load()

	// Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger.Setup(conf.LogLevel)
	appLogger := logger.NewLogger(conf.Name)

	// 2. Setup Components
	var brokerClient interfaces.IBrokerClient = broker.NewClient(conf.Gateway, logger.NewLogger("Broker"))

	srv := server.NewGatewayServer(conf.MConfig, appLogger, brokerClient)

	// 3. Select account and prime the brokerage session
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.Bootstrap(bootCtx); err != nil {
		appLogger.Warning("Startup checks failed, continuing anyway: %v", err)
	}
	bootCancel()

	// 4. Start Server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
			os.Exit(1)
		}
	}()

	appLogger.Info("%s listening on %s:%d", conf.Name, conf.Host, conf.Port)

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	srv.Stop()
}
