package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/receiptradar/receiptradar/internal/extraction"
	"github.com/receiptradar/receiptradar/internal/processing"
	"github.com/receiptradar/receiptradar/internal/receipt"
	"github.com/receiptradar/receiptradar/internal/recognition"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("receiptradar")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "", "Database file path (empty for in-memory)")
		storagePath   = fs.StringLong("storage", "./uploads", "Upload storage directory")
		engineType    = fs.StringLong("engine", "tesseract", "Recognition engine: 'tesseract', 'gemini' or 'ollama'")
		tesseractLang = fs.StringLong("tesseract-lang", "eng", "Tesseract language")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name")
		fastMode      = fs.BoolLong("fast-mode", "Start with fast generated data instead of real recognition")
		delay         = fs.DurationLong("processing-delay", time.Second, "Artificial delay before extraction starts")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTRADAR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize record store
	var db receipt.DB
	if *dbPath == "" {
		slog.Info("Using in-memory receipt store")
		db = receipt.NewMemoryDB()
	} else {
		slog.Info("Opening receipt database", "path", *dbPath)
		boltDB, err := receipt.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to open database", "error", err)
			os.Exit(1)
		}
		db = boltDB
	}
	defer db.Close()

	// Initialize recognition engine based on type
	var engine recognition.Engine
	switch *engineType {
	case "tesseract":
		slog.Info("Using Tesseract engine", "language", *tesseractLang)
		engine = recognition.NewTesseract(*tesseractLang)
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Using Gemini engine", "model", *geminiModel)
		var err error
		engine, err = recognition.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to configure Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Using Ollama engine", "url", *ollamaURL, "model", *ollamaModel)
		var err error
		engine, err = recognition.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to configure Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid engine type", "type", *engineType, "valid", "tesseract, gemini or ollama")
		os.Exit(1)
	}

	// Initialize upload storage
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Wire the pipeline: engine -> adapter -> processor -> lifecycle service
	generator := extraction.NewGenerator()
	adapter := recognition.NewAdapter(engine, generator)
	defer adapter.Close()

	processor := processing.New(adapter, generator, !*fastMode)
	slog.Info("Recognition mode", "mode", processor.ModeLabel())

	service := receipt.NewServiceWithDeps(db, store, processor,
		receipt.DefaultIDGenerator(), receipt.DefaultTimeSource(), *delay)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(service, processor, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
