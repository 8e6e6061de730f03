// File path: cmd/juricode/main.go
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/FilipDolejsi/JuriCode/internal/api"
	"github.com/FilipDolejsi/JuriCode/internal/audit"
	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/corpus"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
	"github.com/FilipDolejsi/JuriCode/internal/graph"
	"github.com/FilipDolejsi/JuriCode/internal/llm"
	"github.com/FilipDolejsi/JuriCode/internal/report"
	"github.com/FilipDolejsi/JuriCode/internal/selector"
	"github.com/FilipDolejsi/JuriCode/internal/sqlite"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("juricode: .env file not loaded", "error", err)
	} else {
		logger.Info("juricode: environment loaded from .env")
	}

	addr := flag.String("addr", ":8000", "listen address")
	dbPath := flag.String("db", "", "path to the SQLite database (overrides JURICODE_DB)")
	flag.Parse()

	logger.Info("juricode: startup initiated", "addr", *addr)

	dbCfg := sqlite.LoadConfig()
	if trimmed := strings.TrimSpace(*dbPath); trimmed != "" {
		dbCfg.Path = trimmed
	}
	db, err := sqlite.OpenWithConfig(dbCfg)
	if err != nil {
		logger.Error("juricode: database open failed", "path", dbCfg.Path, "error", err)
		fmt.Println("database error:", err)
		os.Exit(1)
	}
	defer db.Close()

	provider := llm.NewProvider()
	logger.Info("juricode: llm provider ready", "provider", provider.Name())

	host := githost.NewGitHub(githost.LoadConfig())

	corpusStore, err := corpus.NewStore(db.DB())
	if err != nil {
		fatal(logger, "corpus store", err)
	}
	retriever, err := corpus.NewRetriever(provider, corpusStore)
	if err != nil {
		fatal(logger, "corpus retriever", err)
	}
	ingestor, err := corpus.NewIngestor(provider, corpusStore)
	if err != nil {
		fatal(logger, "corpus ingestor", err)
	}
	reports, err := report.NewStore(db.DB())
	if err != nil {
		fatal(logger, "report store", err)
	}
	contentSelector, err := selector.New(host)
	if err != nil {
		fatal(logger, "content selector", err)
	}
	pipeline, err := audit.NewPipeline(provider, retriever, contentSelector)
	if err != nil {
		fatal(logger, "audit pipeline", err)
	}
	synthesizer, err := audit.NewSynthesizer(provider, retriever)
	if err != nil {
		fatal(logger, "synthesizer", err)
	}
	runner, err := audit.NewRunner(host, pipeline, synthesizer, reports)
	if err != nil {
		fatal(logger, "audit runner", err)
	}
	builder, err := graph.NewBuilder(host)
	if err != nil {
		fatal(logger, "graph builder", err)
	}
	critic, err := graph.NewCritic(provider)
	if err != nil {
		fatal(logger, "silo critic", err)
	}

	server, err := api.NewServer(runner, builder, critic, ingestor, reports)
	if err != nil {
		fatal(logger, "api server", err)
	}

	logger.Info("juricode: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("juricode: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func fatal(logger *slog.Logger, component string, err error) {
	logger.Error("juricode: initialization failed", "component", component, "error", err)
	fmt.Println(component+" error:", err)
	os.Exit(1)
}
