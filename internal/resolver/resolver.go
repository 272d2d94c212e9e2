package resolver

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nutriscan/arnutri-go/internal/logging"
	"github.com/nutriscan/arnutri-go/internal/nutrition"
	"github.com/nutriscan/arnutri-go/internal/observability/metrics"
	"github.com/nutriscan/arnutri-go/internal/offacts"
)

// Package-level logger specific to the resolver service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "resolver.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "resolver", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize resolver file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "resolver")
		closeLogger = func() error { return nil }
	}
}

// Kind distinguishes barcode lookups from free-text searches.
type Kind string

const (
	KindBarcode Kind = "barcode"
	KindText    Kind = "text"
)

// Outcome describes how a resolution was satisfied. The placement pipeline
// keys its panel policy off this value.
type Outcome string

const (
	// OutcomeCached means the record came from the product cache with no
	// network activity.
	OutcomeCached Outcome = "cached"
	// OutcomeRemote means a remote lookup succeeded and the record was
	// cached.
	OutcomeRemote Outcome = "remote"
	// OutcomeNotFound means a barcode lookup found no matching product.
	// The record is a synthetic placeholder and no panel should be placed.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeEstimated means the record was synthesized from the estimate
	// policy after a failed or empty lookup.
	OutcomeEstimated Outcome = "estimated"
)

// Resolution is the result of resolving an identifier. Record is always
// non-nil; Outcome tells the caller how to treat it.
type Resolution struct {
	Record  *nutrition.Record
	Outcome Outcome
}

// RemoteLookup is the product API surface the resolver depends on.
type RemoteLookup interface {
	GetByCode(ctx context.Context, code string) (*offacts.Product, error)
	SearchByText(ctx context.Context, term string) (*offacts.Product, error)
}

// Resolver resolves barcodes and food names to nutrition records using a
// cache-first strategy. It never fails: any lookup error degrades to a
// synthetic estimate record.
type Resolver struct {
	cache   *ProductCache
	remote  RemoteLookup
	metrics *metrics.ResolverMetrics
}

// New creates a Resolver. The metrics pointer may be nil, for example in
// tests.
func New(cache *ProductCache, remote RemoteLookup, m *metrics.ResolverMetrics) *Resolver {
	return &Resolver{
		cache:   cache,
		remote:  remote,
		metrics: m,
	}
}

// Cache exposes the underlying product cache.
func (r *Resolver) Cache() *ProductCache {
	return r.cache
}

// Resolve resolves an identifier to a nutrition record.
//
// The cache is checked synchronously before any network activity, so a
// cached identifier resolves with zero requests. Remote results are cached;
// synthetic estimates are not, so a later successful lookup is never
// shadowed by an earlier failure.
func (r *Resolver) Resolve(ctx context.Context, identifier string, kind Kind) Resolution {
	key := CacheKey(identifier, kind)

	if record, found := r.cache.Lookup(key); found {
		if r.metrics != nil {
			r.metrics.RecordCacheHit(string(kind))
		}
		logger.Debug("cache hit", "key", key, "kind", kind)
		return Resolution{Record: record, Outcome: OutcomeCached}
	}

	if r.metrics != nil {
		r.metrics.RecordCacheMiss(string(kind))
	}

	start := time.Now()
	product, err := r.fetch(ctx, identifier, key, kind)
	if r.metrics != nil {
		r.metrics.RecordLookupDuration(string(kind), time.Since(start).Seconds())
	}

	if err != nil {
		return r.fallback(identifier, key, kind, err)
	}

	record := nutrition.FromProduct(key, product)
	r.cache.Store(key, record)

	if r.metrics != nil {
		r.metrics.RecordLookup(string(kind), metrics.StatusSuccess)
		r.metrics.UpdateCacheSize(r.cache.Len())
	}

	logger.Info("product resolved",
		"key", key,
		"kind", kind,
		"title", record.Title)

	return Resolution{Record: record, Outcome: OutcomeRemote}
}

func (r *Resolver) fetch(ctx context.Context, identifier, key string, kind Kind) (*offacts.Product, error) {
	if kind == KindBarcode {
		return r.remote.GetByCode(ctx, identifier)
	}
	return r.remote.SearchByText(ctx, key)
}

// fallback converts a lookup failure into a synthetic record. Estimates
// are never cached.
func (r *Resolver) fallback(identifier, key string, kind Kind, err error) Resolution {
	notFound := offacts.IsProductNotFound(err)

	if kind == KindBarcode && notFound {
		if r.metrics != nil {
			r.metrics.RecordLookup(string(kind), metrics.StatusNotFound)
			r.metrics.RecordNotFound()
		}
		logger.Info("no product for barcode", "barcode", identifier)
		return Resolution{
			Record:  nutrition.Estimate(key, identifier),
			Outcome: OutcomeNotFound,
		}
	}

	reason := metrics.ReasonLookupError
	status := metrics.StatusError
	if notFound {
		reason = metrics.ReasonNoMatch
		status = metrics.StatusNotFound
	}

	if r.metrics != nil {
		r.metrics.RecordLookup(string(kind), status)
		r.metrics.RecordEstimate(reason)
	}

	logger.Warn("falling back to estimate",
		"identifier", identifier,
		"kind", kind,
		"reason", reason,
		"error", err.Error())

	return Resolution{
		Record:  nutrition.Estimate(key, key),
		Outcome: OutcomeEstimated,
	}
}
