package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/emberscript/emberc/pkg/artifactstore"
	"github.com/emberscript/emberc/pkg/cache"
	"github.com/emberscript/emberc/pkg/compiler"
	"github.com/emberscript/emberc/pkg/emberconfig"
	"github.com/emberscript/emberc/pkg/emberlog"
	"github.com/emberscript/emberc/pkg/embermetrics"
	"github.com/emberscript/emberc/pkg/embertracing"
	"github.com/emberscript/emberc/pkg/irfmt"
	"github.com/emberscript/emberc/pkg/unitfmt"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// pipeline is the shared compile path behind both "emberc compile" and
// "emberc watch": decode a unit, consult the in-process cache and the
// durable artifact store, compile on a miss, and persist the result to
// both, recording a span and a set of Prometheus counters around every
// step. One pipeline is built per process and reused across every
// recompile a watch session triggers, so the LRU actually earns its keep.
type pipeline struct {
	cfg     *emberconfig.Config
	log     *emberlog.Logger
	lru     *cache.LRUCache
	store   artifactstore.Store
	fprint  string
	compOpt compiler.Options

	metrics *embermetrics.Metrics
	tracer  *embertracing.TracerProvider
}

func newPipeline(cfg *emberconfig.Config, log *emberlog.Logger) (*pipeline, error) {
	store, err := artifactstore.Open(context.Background(), artifactstore.Config{
		Backend: cfg.Artifacts.Backend,
		DSN:     cfg.Artifacts.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	opts := compiler.Options{MaxParams: cfg.Compiler.MaxParams}

	var lru *cache.LRUCache
	if cfg.Cache.Enabled {
		lru = cache.NewLRUCache(cache.WithCapacity(cfg.Cache.Capacity))
	}

	var metrics *embermetrics.Metrics
	if cfg.Metrics.Enabled {
		metrics = embermetrics.New(embermetrics.DefaultConfig())
	}

	tracer, err := embertracing.Init(&embertracing.Config{
		ServiceName:    "emberc",
		ServiceVersion: version,
		Exporter:       cfg.Tracing.Exporter,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SamplingRate:   1.0,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	return &pipeline{
		cfg:     cfg,
		log:     log,
		lru:     lru,
		store:   store,
		fprint:  fmt.Sprintf("max_params=%d", opts.MaxParams),
		compOpt: opts,
		metrics: metrics,
		tracer:  tracer,
	}, nil
}

func (p *pipeline) Close() error {
	if p.lru != nil {
		p.lru.Close()
	}
	if p.tracer != nil {
		p.tracer.Shutdown(context.Background())
	}
	return p.store.Close()
}

// compileResult is what running a unit through the pipeline produces.
type compileResult struct {
	UnitName string
	Key      string
	Bytecode []byte // pkg/irfmt-encoded
	FromHit  bool   // true if served from cache/store instead of recompiled
}

// compileUnit checks cache/store for raw's content key and, on a miss,
// decodes raw and compiles it.
func (p *pipeline) compileUnit(unitName string, raw []byte) (*compileResult, error) {
	ctx, span := embertracing.StartSpan(context.Background(), "compile.unit",
		trace.WithAttributes(embertracing.CompileAttributes(unitName, len(raw))...))
	defer span.End()

	ctxLog := p.log.WithUnitID(emberlog.NewUnitID())
	key := cache.SourceKey(raw, p.fprint)
	start := time.Now()

	recordCacheLookup := func(hit bool) {
		if p.metrics != nil {
			p.metrics.RecordCacheLookup(hit)
		}
	}
	recordCompile := func(ok bool) {
		if p.metrics != nil {
			p.metrics.RecordCompile(ok, time.Since(start))
		}
	}

	if p.lru != nil {
		if bc, ok := p.lru.Get(key); ok {
			recordCacheLookup(true)
			ctxLog.Info("cache hit (in-process): " + unitName)
			enc, err := irfmt.Encode(bc)
			if err != nil {
				return nil, err
			}
			return &compileResult{UnitName: unitName, Key: key, Bytecode: enc, FromHit: true}, nil
		}
	}

	if a, err := p.store.Get(ctx, key); err == nil {
		recordCacheLookup(true)
		ctxLog.Info("cache hit (artifact store): " + unitName)
		if p.lru != nil {
			if bc, decErr := irfmt.Decode(a.Bytecode); decErr == nil {
				p.lru.Set(key, bc, 0)
			}
		}
		return &compileResult{UnitName: unitName, Key: key, Bytecode: a.Bytecode, FromHit: true}, nil
	}
	recordCacheLookup(false)

	mod, err := unitfmt.Decode(raw)
	if err != nil {
		recordCompile(false)
		return nil, fmt.Errorf("decode unit %s: %w", unitName, err)
	}

	ctxLog.Info("compiling " + unitName)
	bc, err := compiler.NewCompilerWithOptions(p.compOpt).Compile(mod)
	if err != nil {
		ctxLog.Warn(err.Error())
		recordCompile(false)
		return nil, err
	}
	recordCompile(true)

	enc, err := irfmt.Encode(bc)
	if err != nil {
		return nil, err
	}

	if p.lru != nil {
		p.lru.Set(key, bc, 0)
	}
	if err := p.store.Put(ctx, artifactstore.Artifact{
		ID:         uuid.New(),
		Key:        key,
		UnitName:   unitName,
		Bytecode:   enc,
		SourceHash: key,
		CompiledAt: time.Now(),
	}); err != nil {
		ctxLog.Warn("persist artifact: " + err.Error())
	}

	return &compileResult{UnitName: unitName, Key: key, Bytecode: enc}, nil
}

func readUnitFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
