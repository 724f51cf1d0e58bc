// Command scrun starts a single-process signal-collect graph and runs it to
// convergence, for ad hoc experimentation with the engine outside of the
// test suite. Grounded on the teacher's examples/ main.go idiom: flag-based
// configuration, a small fixed set of wired components, plain log output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/transcendent-ai-labs/signal-collect/algorithm"
	"github.com/transcendent-ai-labs/signal-collect/emit"
	"github.com/transcendent-ai-labs/signal-collect/engine"
	"github.com/transcendent-ai-labs/signal-collect/scmetrics"
	"github.com/transcendent-ai-labs/signal-collect/scstore"
	"github.com/transcendent-ai-labs/signal-collect/sctrace"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	algorithmName := flag.String("algorithm", "pagerank", "algorithm to run: pagerank or sssp")
	numberOfWorkers := flag.Int("workers", 2, "number of worker shards")
	timeLimit := flag.Duration("time-limit", 10*time.Second, "maximum wall-clock time before aborting the run")
	dbPath := flag.String("store", ":memory:", "sqlite path for run-record persistence")
	tracingEnabled := flag.Bool("tracing", false, "export run/superstep/request spans to stdout via OpenTelemetry")
	flag.Parse()

	if err := run(*algorithmName, *numberOfWorkers, *timeLimit, *dbPath, *tracingEnabled); err != nil {
		log.Fatal(err)
	}
}

func run(algorithmName string, numberOfWorkers int, timeLimit time.Duration, dbPath string, tracingEnabled bool) error {
	store, err := scstore.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("scrun: open store: %w", err)
	}
	defer store.Close()

	metrics := scmetrics.New(prometheus.NewRegistry())

	tracer, shutdownTracing, err := buildTracer(tracingEnabled)
	if err != nil {
		return fmt.Errorf("scrun: build tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("scrun: tracer shutdown: %v", err)
		}
	}()

	logger := func(m emit.LogMessage) {
		fmt.Fprintf(os.Stdout, "[%s] %s\n", m.Level, m.Message)
	}

	switch algorithmName {
	case "pagerank":
		return runPageRank(numberOfWorkers, timeLimit, store, metrics, tracer, logger)
	case "sssp":
		return runSSSP(numberOfWorkers, timeLimit, store, metrics, tracer, logger)
	default:
		return fmt.Errorf("scrun: unknown algorithm %q", algorithmName)
	}
}

// buildTracer wires an OpenTelemetry SDK TracerProvider when tracing is
// requested, exporting spans to stdout so an operator running scrun by
// hand can see the run/superstep/request spans sctrace produces. Disabled
// by default, sctrace.New(nil) keeps every span a no-op.
func buildTracer(enabled bool) (*sctrace.Tracer, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !enabled {
		return sctrace.New(nil), noop, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("scrun: build stdout exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	return sctrace.New(provider.Tracer("scrun")), provider.Shutdown, nil
}

func runPageRank(numberOfWorkers int, timeLimit time.Duration, store scstore.Store, metrics *scmetrics.Metrics, tracer *sctrace.Tracer, logger func(emit.LogMessage)) error {
	cfg := engine.DefaultBuilderConfig[int]()
	cfg.NumberOfWorkers = numberOfWorkers
	cfg.Logger = logger
	cfg.LoggingLevel = emit.Info
	cfg.Metrics = metrics
	cfg.Store = store
	cfg.Tracer = tracer

	g, err := engine.NewGraph[int, float64](cfg)
	if err != nil {
		return fmt.Errorf("scrun: build graph: %w", err)
	}
	defer g.Shutdown()

	editor := g.Editor()
	vertices := map[int]*algorithm.PageRankVertex[int]{
		1: algorithm.NewPageRankVertex(1, 0.15, 0.85),
		2: algorithm.NewPageRankVertex(2, 0.15, 0.85),
		3: algorithm.NewPageRankVertex(3, 0.15, 0.85),
	}
	for _, v := range vertices {
		editor.AddVertex(v)
	}
	editor.AddEdge(1, engine.Edge[int]{TargetID: 2})
	editor.AddEdge(2, engine.Edge[int]{TargetID: 1})
	editor.AddEdge(2, engine.Edge[int]{TargetID: 3})
	editor.AddEdge(3, engine.Edge[int]{TargetID: 2})

	ctx, cancel := context.WithTimeout(context.Background(), timeLimit)
	defer cancel()

	summary, err := editor.Execute(ctx, engine.ExecutionConfig{
		Mode:             engine.Synchronous,
		SignalThreshold:  0.001,
		CollectThreshold: 0.0,
		TimeLimit:        timeLimit,
	})
	if err != nil {
		return fmt.Errorf("scrun: execute: %w", err)
	}

	fmt.Printf("run %s terminated: %s after %d supersteps (%s)\n", summary.RunID, summary.Reason, summary.Supersteps, summary.Duration)
	for id, v := range vertices {
		fmt.Printf("vertex %d: rank=%.4f\n", id, v.State())
	}
	return nil
}

func runSSSP(numberOfWorkers int, timeLimit time.Duration, store scstore.Store, metrics *scmetrics.Metrics, tracer *sctrace.Tracer, logger func(emit.LogMessage)) error {
	cfg := engine.DefaultBuilderConfig[int]()
	cfg.NumberOfWorkers = numberOfWorkers
	cfg.Logger = logger
	cfg.LoggingLevel = emit.Info
	cfg.Metrics = metrics
	cfg.Store = store
	cfg.Tracer = tracer

	g, err := engine.NewGraph[int, int](cfg)
	if err != nil {
		return fmt.Errorf("scrun: build graph: %w", err)
	}
	defer g.Shutdown()

	editor := g.Editor()
	vertices := map[int]*algorithm.SSSPVertex[int]{
		1: algorithm.NewSSSPSourceVertex(1),
		2: algorithm.NewSSSPVertex(2),
		3: algorithm.NewSSSPVertex(3),
		4: algorithm.NewSSSPVertex(4),
		5: algorithm.NewSSSPVertex(5),
		6: algorithm.NewSSSPVertex(6),
	}
	for _, v := range vertices {
		editor.AddVertex(v)
	}
	for _, e := range [][2]int{{1, 2}, {2, 3}, {3, 4}, {1, 5}, {4, 6}, {5, 6}} {
		editor.AddEdge(e[0], engine.Edge[int]{TargetID: e[1]})
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeLimit)
	defer cancel()

	summary, err := editor.Execute(ctx, engine.ExecutionConfig{
		Mode:      engine.Synchronous,
		TimeLimit: timeLimit,
	})
	if err != nil {
		return fmt.Errorf("scrun: execute: %w", err)
	}

	fmt.Printf("run %s terminated: %s after %d supersteps (%s)\n", summary.RunID, summary.Reason, summary.Supersteps, summary.Duration)
	for id, v := range vertices {
		if d, ok := v.Distance(); ok {
			fmt.Printf("vertex %d: distance=%d\n", id, d)
		} else {
			fmt.Printf("vertex %d: unreachable\n", id)
		}
	}
	return nil
}
