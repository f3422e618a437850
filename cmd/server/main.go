package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nickyhof/MemDB"
	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/logging"
	"github.com/nickyhof/MemDB/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	port := flag.Int("port", 3306, "TCP port to listen on")
	baseDir := flag.String("baseDir", "", "Directory of the checkpoint repository (memory only if empty)")
	gitUrl := flag.String("gitUrl", "", "Git URL to clone the checkpoint repository from")
	tlsCert := flag.String("tlsCert", "", "TLS certificate file")
	tlsKey := flag.String("tlsKey", "", "TLS key file")
	jwtSecret := flag.String("jwtSecret", "", "Shared HS256 secret; enables AUTH JWT when set")
	jwtIssuer := flag.String("jwtIssuer", "", "Expected JWT issuer")
	jwtAudience := flag.String("jwtAudience", "", "Expected JWT audience")
	logLevel := flag.String("log-level", "INFO", "Log level: DEBUG, INFO, WARN or ERROR")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	logFile := flag.String("log-file", "", "Log file (empty logs to stderr)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("MemDB SQL Server v%s\n", Version)
		return
	}

	if err := logging.Init(logging.Config{
		Level:      logging.LogLevel(*logLevel),
		Format:     *logFormat,
		OutputPath: *logFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()
	logger := logging.WithComponent("main")

	var persistence *ps.Persistence
	if *baseDir != "" {
		logger.Info("using checkpoint repository", "dir", *baseDir)
		var gitUrlPtr *string
		if *gitUrl != "" {
			gitUrlPtr = gitUrl
		}
		var err error
		if persistence, err = ps.NewFilePersistence(*baseDir, gitUrlPtr); err != nil {
			logger.Error("failed to open checkpoint repository", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("using memory storage, checkpoints disabled")
	}

	instance := MemDB.Open(persistence)
	identity := core.Identity{
		Name:  "MemDB Server",
		Email: "server@memdb.local",
	}

	var server *Server
	if *jwtSecret != "" {
		server = NewServerWithAuth(instance, identity, &AuthConfig{
			JWTSecret: *jwtSecret,
			Issuer:    *jwtIssuer,
			Audience:  *jwtAudience,
		})
	} else {
		server = NewServer(instance, identity)
	}

	addr := fmt.Sprintf(":%d", *port)
	var err error
	if *tlsCert != "" {
		err = server.StartTLS(addr, *tlsCert, *tlsKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("MemDB SQL Server v%s listening on port %d\n", Version, *port)
	fmt.Println(`Send one statement per line, plain SQL or {"query": "...", "args": [...]}; 'quit' to disconnect`)
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Warn("shutdown finished with error", "error", err)
	}
	logger.Info("server stopped")
}
