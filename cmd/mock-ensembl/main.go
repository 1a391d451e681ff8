package main

import (
	"errors"
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/logger"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/mockensembl"
)

func main() {
	addr := defaultString("MOCK_ENSEMBL_ADDR", ":8080")
	fixtureDir := defaultString("MOCK_ENSEMBL_FIXTURES", "/data/fixtures")
	logLevel := defaultString("LOG_LEVEL", "")

	fs := flag.NewFlagSet("mock-ensembl", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&fixtureDir, "fixtures", fixtureDir, "Directory containing <species>/<gene>.json response bodies")
	fs.StringVar(&logLevel, "log-level", logLevel, "Log level")
	_ = fs.Parse(os.Args[1:])

	log, err := logger.NewLogger("local", logLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		_ = log.Sync()
	}()

	srv := mockensembl.New()
	n, err := srv.LoadFixtures(fixtureDir)
	if err != nil {
		log.Fatal("load fixtures", zap.String("dir", fixtureDir), zap.Error(err))
	}

	log.Info("mock-ensembl listening", zap.String("addr", addr), zap.String("fixtures", fixtureDir), zap.Int("genes", n))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
