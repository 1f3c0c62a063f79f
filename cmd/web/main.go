// Web server for the go-preprint portal
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-preprint/internal/config"
	"github.com/go-while/go-preprint/internal/database"
	"github.com/go-while/go-preprint/internal/web"
)

var (
	// command-line flags
	webport     int
	webssl      bool
	webcertFile string
	webkeyFile  string
	dbURL       string
	configFile  string
	envFile     string
	pprofListen string
	debug       bool

	Prof *prof.Profiler
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.IntVar(&webport, "webport", 0, "Web server port (default: 11990)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&dbURL, "db", "", "Database url (default: sqlite3:data/preprints.sq3)")
	flag.StringVar(&configFile, "config", "", "Optional ini config file with [web], [database] and [preprint] sections")
	flag.StringVar(&envFile, "envfile", ".env", "Optional env file with PREPRINT_* overrides")
	flag.StringVar(&pprofListen, "pprof", "", "Serve pprof and write memory profiles, e.g. :51111 (default: off)")
	flag.BoolVar(&debug, "debug", false, "Run gin in debug mode")
	flag.Parse()

	log.Printf("Starting go-preprint: Web Server (version: %s)", appVersion)

	mainConfig := config.NewDefaultConfig()
	if configFile != "" {
		if err := mainConfig.LoadFile(configFile); err != nil {
			log.Fatalf("[WEB]: %v", err)
		}
	}
	if err := mainConfig.LoadEnv(envFile); err != nil {
		log.Fatalf("[WEB]: %v", err)
	}

	// Override config with command-line flags if provided
	webConfig := &mainConfig.Web
	if webport > 0 {
		webConfig.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webConfig.ListenPort)
	}
	if webssl {
		webConfig.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	if webcertFile != "" {
		webConfig.CertFile = webcertFile
	}
	if webkeyFile != "" {
		webConfig.KeyFile = webkeyFile
	}
	if debug {
		webConfig.Debug = true
	}
	if pprofListen != "" {
		webConfig.PprofListen = pprofListen
	}
	if dbURL != "" {
		mainConfig.Database.URL = dbURL
	}
	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: Invalid configuration: %v", err)
	}

	if webConfig.PprofListen != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(webConfig.PprofListen)
		Prof.StartMemProfile(5*time.Minute, 30*time.Second)
		log.Printf("[WEB]: pprof listening on %s", webConfig.PprofListen)
	}

	dbConfig, err := database.ConfigFromURL(mainConfig.Database.URL)
	if err != nil {
		log.Fatalf("[WEB]: %v", err)
	}
	db, err := database.OpenDatabase(dbConfig)
	if err != nil {
		log.Fatalf("[WEB]: Failed to initialize database: %v", err)
	}

	server := web.NewServer(db, mainConfig, nil)
	if err := server.StartSessionCleanup(); err != nil {
		log.Fatalf("[WEB]: Failed to schedule background jobs: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			webServerErrChan <- err
		}
	}()
	log.Printf("[WEB]: Server started successfully. Press Ctrl+C to gracefully shutdown...")

	select {
	case <-sigChan:
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		log.Fatalf("[WEB]: Failed to start web server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error stopping web server: %v", err)
	}

	if err := db.Shutdown(); err != nil {
		log.Fatalf("[WEB]: Failed to shutdown database: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
}
