package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"

	"github.com/vcentea/linkedin-gateway-sub000/config"
	"github.com/vcentea/linkedin-gateway-sub000/connection/gatewayconnection"
	"github.com/vcentea/linkedin-gateway-sub000/connection/messenger/envelope"
	"github.com/vcentea/linkedin-gateway-sub000/connection/status"
	"github.com/vcentea/linkedin-gateway-sub000/connection/transporter/websocket"
	"github.com/vcentea/linkedin-gateway-sub000/gatewaychannel"
	"github.com/vcentea/linkedin-gateway-sub000/identity"
	"github.com/vcentea/linkedin-gateway-sub000/logger"
	"github.com/vcentea/linkedin-gateway-sub000/proxy"
	"github.com/vcentea/linkedin-gateway-sub000/store"
)

const version = "1.0.0"

var (
	configPath   string
	printVersion bool
)

func main() {
	parseFlags()

	if printVersion {
		fmt.Println(version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func parseFlags() {
	flag.BoolVar(&printVersion, "version", false, "Print current version of the gateway agent")
	flag.StringVar(&configPath, "config", "gateway.yml", "Path to the gateway config file")
	flag.Parse()
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		FilePath:       cfg.LogFilePath,
		ConsoleWriters: []io.Writer{os.Stdout},
		LogLevel:       logger.ToLogLevel(cfg.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.AddAgentVersion(version)

	fileStore, err := store.NewFileStore(cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	identityProvider := identity.New(log.GetComponentLogger("Identity"), fileStore)

	// Status consumers are disposable; the process keeps one alive just to log
	// transitions
	broadcaster := status.NewBroadcaster()
	statusSub := broadcaster.Subscribe()
	go func() {
		for s := range statusSub.Notify() {
			log.Infof("connection status: %s", s)
		}
	}()

	connLogger := log.GetComponentLogger("Connection")
	wsLogger := connLogger.GetComponentLogger("Websocket")
	client := envelope.New(connLogger, websocket.New(wsLogger))

	conn := gatewayconnection.New(connLogger, gatewayconnection.Config{
		ServerUrl:             cfg.ServerUrl,
		PingInterval:          cfg.PingInterval,
		PongTimeout:           cfg.PongTimeout,
		RequestTimeout:        cfg.RequestTimeout,
		ReconnectInitialDelay: cfg.ReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.ReconnectMaxDelay,
		ReconnectMaxAttempts:  cfg.ReconnectMaxAttempts,
	}, identityProvider, client, broadcaster)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to build cookie jar: %w", err)
	}
	executor := proxy.NewExecutor(log.GetComponentLogger("Proxy"), &http.Client{Jar: jar})

	channel := gatewaychannel.Start(log.GetComponentLogger("GatewayChannel"), "gateway", conn, executor, identityProvider)

	if err := conn.Connect(); err != nil {
		return fmt.Errorf("failed to start connection: %w", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownChan:
		log.Infof("Received signal %s, shutting down gracefully", sig)
		conn.Disconnect(true)
		channel.Close(fmt.Errorf("received shutdown signal %s", sig))
		return nil
	case <-conn.Done():
		if err := conn.Err(); err != nil {
			return fmt.Errorf("connection terminated: %w", err)
		}
		return nil
	}
}
