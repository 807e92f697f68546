package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/viant/mlvec/index/bruteforce"
	"github.com/viant/mlvec/vector"
	"github.com/viant/mlvec/version"
)

// ErrUnsupportedServer is returned when the store reports a server version
// below the scanner's minimum.
var ErrUnsupportedServer = errors.New("scan: server version not supported")

// Digest identifies a matched record.
type Digest = vector.Digest

// Request describes one vector scan.
type Request struct {
	Namespace string
	// Set limits the scan to one set; empty scans the whole namespace.
	Set string
	Bin string
	// Vector is the query. It is encoded as Type before the scan starts;
	// a zero Type uses the vector's own element type.
	Vector vector.Vector
	Type   vector.ElementType
	Metric vector.Metric
	// MaxDistance, when set, drops matches farther than it.
	MaxDistance *float64
}

// Callback receives one match. Returning false stops the scan.
type Callback func(namespace string, digest Digest, set string, distance float64) bool

// Stats summarizes a finished scan.
type Stats struct {
	// Scanned counts records of the requested bin.
	Scanned int
	// Matched counts callback invocations.
	Matched int
	// Skipped counts records whose blob could not be measured.
	Skipped int
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithMinServerVersion refuses to scan stores reporting a lower version.
func WithMinServerVersion(v version.Version) Option {
	return func(s *Scanner) { s.minVersion = v }
}

// WithLogger sets the logger used for skipped records. Without it the
// logger stored in the scan context is used.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scanner) { s.logger = &logger }
}

// Scanner runs vector scans against a store.
type Scanner struct {
	store      vector.Store
	minVersion version.Version
	logger     *zerolog.Logger
}

// New creates a Scanner over store.
func New(store vector.Store, opts ...Option) *Scanner {
	s := &Scanner{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans the request's namespace and set, calling cb for every record
// whose bin decodes to a vector of the query's length. Corrupt blobs and
// length mismatches are counted as skipped, not returned as errors.
func (s *Scanner) Run(ctx context.Context, req Request, cb Callback) (Stats, error) {
	var stats Stats
	if cb == nil {
		return stats, fmt.Errorf("scan: callback is nil")
	}
	query, err := s.prepare(ctx, req)
	if err != nil {
		return stats, err
	}
	logger := s.loggerFor(ctx)
	logger.Debug().
		Str("namespace", req.Namespace).
		Str("set", req.Set).
		Str("bin", req.Bin).
		Stringer("metric", req.Metric).
		Int("dim", query.Len()).
		Msg("vector scan started")

	err = s.store.Scan(ctx, req.Namespace, req.Set, func(rec vector.Record) bool {
		if rec.Bin != req.Bin {
			return true
		}
		stats.Scanned++
		v, _, err := vector.Deserialize(rec.Blob)
		if err != nil {
			stats.Skipped++
			logger.Warn().Err(err).Str("digest", rec.Digest.String()).Msg("skipping undecodable vector")
			return true
		}
		if v.Len() != query.Len() {
			stats.Skipped++
			logger.Debug().Str("digest", rec.Digest.String()).Int("dim", v.Len()).Msg("skipping vector of different length")
			return true
		}
		distance, err := vector.Distance(req.Metric, query, v)
		if err != nil {
			stats.Skipped++
			logger.Debug().Err(err).Str("digest", rec.Digest.String()).Msg("skipping unmeasurable vector")
			return true
		}
		if req.MaxDistance != nil && distance > *req.MaxDistance {
			return true
		}
		stats.Matched++
		return cb(rec.Key.Namespace, rec.Digest, rec.Key.Set, distance)
	})
	logger.Debug().
		Int("scanned", stats.Scanned).
		Int("matched", stats.Matched).
		Int("skipped", stats.Skipped).
		Msg("vector scan finished")
	return stats, err
}

// Match is one result of Nearest.
type Match struct {
	Digest   Digest
	Set      string
	Distance float64
}

// Nearest returns the k closest matches of the request, closest first. A
// non-positive k returns every match. MaxDistance applies as in Run.
func (s *Scanner) Nearest(ctx context.Context, req Request, k int) ([]Match, error) {
	var (
		ids  []string
		vecs []vector.Vector
		recs = map[string]Match{}
	)
	query, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	err = s.store.Scan(ctx, req.Namespace, req.Set, func(rec vector.Record) bool {
		if rec.Bin != req.Bin {
			return true
		}
		v, _, err := vector.Deserialize(rec.Blob)
		if err != nil || v.Len() != query.Len() {
			return true
		}
		id := rec.Key.Set + "\x00" + rec.Digest.String()
		ids = append(ids, id)
		vecs = append(vecs, v)
		recs[id] = Match{Digest: rec.Digest, Set: rec.Key.Set}
		return true
	})
	if err != nil {
		return nil, err
	}
	idx := bruteforce.New(req.Metric)
	if err := idx.Build(ids, vecs); err != nil {
		return nil, err
	}
	found, distances, err := idx.Query(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(found))
	for i, id := range found {
		// Distances are ascending, so everything after the first miss is farther.
		if req.MaxDistance != nil && distances[i] > *req.MaxDistance {
			break
		}
		m := recs[id]
		m.Distance = distances[i]
		out = append(out, m)
	}
	return out, nil
}

// prepare checks the server version and round-trips the query through the
// blob codec, which is exactly what a remote store would receive.
func (s *Scanner) prepare(ctx context.Context, req Request) (vector.Vector, error) {
	if req.Namespace == "" || req.Bin == "" {
		return vector.Vector{}, fmt.Errorf("scan: namespace and bin are required: %w", vector.ErrInvalidArgument)
	}
	t := req.Type
	if t == 0 {
		t = req.Vector.Type()
	}
	blob, err := vector.Serialize(req.Vector, t)
	if err != nil {
		return vector.Vector{}, fmt.Errorf("scan: encode query: %w", err)
	}
	query, _, err := vector.Deserialize(blob)
	if err != nil {
		return vector.Vector{}, fmt.Errorf("scan: decode query: %w", err)
	}
	if err := s.checkVersion(ctx); err != nil {
		return vector.Vector{}, err
	}
	return query, nil
}

func (s *Scanner) checkVersion(ctx context.Context) error {
	if s.minVersion == (version.Version{}) {
		return nil
	}
	versioned, ok := s.store.(vector.Versioned)
	if !ok {
		return nil
	}
	v, err := versioned.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("scan: server version: %w", err)
	}
	if !v.AtLeast(s.minVersion) {
		return fmt.Errorf("%w: %s < %s", ErrUnsupportedServer, v, s.minVersion)
	}
	return nil
}

func (s *Scanner) loggerFor(ctx context.Context) *zerolog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zerolog.Ctx(ctx)
}
