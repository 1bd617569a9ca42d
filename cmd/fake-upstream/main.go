// Command fake-upstream serves a fixture as a stand-in for the GitHub Actions
// API and the analytics service.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/runboard/internal/fakeupstream"
	"github.com/okian/runboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr       = ":9090"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	var (
		addr      = flag.String("addr", defaultAddr, "Listen address")
		fixture   = flag.String("fixture", "", "YAML fixture file (default: generated)")
		workflows = flag.Int("workflows", 3, "Generated workflows")
		runs      = flag.Int("runs", 12, "Generated runs per workflow")
		seed      = flag.Uint64("seed", 1, "Generation seed")
		owner     = flag.String("owner", "octo", "Generated repository owner")
		repo      = flag.String("repo", "hello", "Generated repository name")
		dump      = flag.Bool("dump", false, "Print the fixture as YAML and exit")
		failRuns  = flag.Int64("fail-runs", 0, "Workflow id whose run listing answers 500")
		delay     = flag.Duration("delay", 0, "Latency added to every response")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("fake_upstream")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := loadOrGenerate(*fixture, fakeupstream.GenerateConfig{
		Owner:           *owner,
		Repo:            *repo,
		Workflows:       *workflows,
		RunsPerWorkflow: *runs,
		Seed:            *seed,
	})
	if err != nil {
		log.Fatal(ctx, "failed to load fixture", logger.Error(err))
	}

	if *dump {
		data, err := f.Marshal()
		if err != nil {
			log.Fatal(ctx, "failed to encode fixture", logger.Error(err))
		}
		_, _ = os.Stdout.Write(data)
		return
	}

	fake := fakeupstream.NewServer(f)
	if *failRuns != 0 {
		fake.FailRuns(*failRuns, http.StatusInternalServerError)
	}
	if *delay > 0 {
		fake.SetDelay(*delay)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "serving fake upstream",
			logger.String("addr", *addr),
			logger.String("repository", f.Owner+"/"+f.Repo),
			logger.Int("workflows", len(f.Workflows)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "fake upstream failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "fake upstream stopped", logger.Int64("requests", fake.Requests()))
}

func loadOrGenerate(path string, cfg fakeupstream.GenerateConfig) (*fakeupstream.Fixture, error) {
	if path != "" {
		return fakeupstream.LoadFixture(path)
	}
	return fakeupstream.Generate(cfg), nil
}
