// Package sampler estimates the average size of mirrored files by probing a bounded random
// sample of the store.
//
// A run draws up to SampleSize distinct ids, skips ids with no known mirrors, probes a random
// non-empty subset of each remaining id's mirrors one request at a time, and stops once
// MaxSuccesses probes have succeeded or the sample is exhausted.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/vodarchive/collate/internal/record"
	"math/rand/v2"
	"time"
)

const (
	DefaultSampleSize    = 5000
	DefaultMaxSuccesses  = 1000
	DefaultProgressEvery = 50
)

// ErrNoData is returned by Result.Average when no probe succeeded.
var ErrNoData = errors.New("no data: no probe succeeded")

type recordSource interface {
	Keys() ([]string, error)
	Get(id string) (*record.VideoRecord, error)
}

type Sampler struct {
	store         recordSource
	prober        Prober
	sampleSize    int
	maxSuccesses  int
	progressEvery int
	rng           *rand.Rand
}

type Config struct {
	Store  recordSource
	Prober Prober
	// SampleSize is the number of distinct ids drawn. Defaults to DefaultSampleSize.
	SampleSize int
	// MaxSuccesses stops the run once that many probes succeeded. Defaults to
	// DefaultMaxSuccesses.
	MaxSuccesses int
	// ProgressEvery logs a progress line after that many ids with mirrors were checked.
	// Defaults to DefaultProgressEvery.
	ProgressEvery int
	// Rand drives the sample and subset choices. Defaults to a randomly seeded source.
	Rand *rand.Rand
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Store == nil {
		errGrp = append(errGrp, errors.New("store cannot be nil"))
	}
	if c.Prober == nil {
		errGrp = append(errGrp, errors.New("prober cannot be nil"))
	}
	if c.SampleSize < 0 {
		errGrp = append(errGrp, errors.New("sample size cannot be negative"))
	}
	if c.MaxSuccesses < 0 {
		errGrp = append(errGrp, errors.New("max successes cannot be negative"))
	}
	if c.ProgressEvery < 0 {
		errGrp = append(errGrp, errors.New("progress interval cannot be negative"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Sampler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Sampler{
		store:         cfg.Store,
		prober:        cfg.Prober,
		sampleSize:    cfg.SampleSize,
		maxSuccesses:  cfg.MaxSuccesses,
		progressEvery: cfg.ProgressEvery,
		rng:           cfg.Rand,
	}
	if s.sampleSize == 0 {
		s.sampleSize = DefaultSampleSize
	}
	if s.maxSuccesses == 0 {
		s.maxSuccesses = DefaultMaxSuccesses
	}
	if s.progressEvery == 0 {
		s.progressEvery = DefaultProgressEvery
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s, nil
}

// Result is the outcome of a sampling run.
type Result struct {
	// Sampled is the number of ids drawn from the store.
	Sampled int
	// Checked is the number of sampled ids that had mirrors.
	Checked int
	// Count is the number of successful probes and Total the sum of their sizes.
	Count int
	Total int64
	// Failures is the number of probes that were skipped.
	Failures int
}

// Average returns Total / Count, or ErrNoData when nothing was measured.
func (r *Result) Average() (int64, error) {
	if r.Count == 0 {
		return 0, ErrNoData
	}
	return r.Total / int64(r.Count), nil
}

func (r *Result) String() string {
	avg, err := r.Average()
	if err != nil {
		return fmt.Sprintf("Count=%d Total=%d Avg=no data", r.Count, r.Total)
	}
	return fmt.Sprintf("Count=%d Total=%d Avg=%d", r.Count, r.Total, avg)
}

// Run samples the store. Probe failures are logged and skipped; only store errors and
// cancellation end a run early with an error.
func (s *Sampler) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	sample, err := s.draw()
	if err != nil {
		return nil, err
	}

	res := &Result{Sampled: len(sample)}
	log.Info().Int("sampled", res.Sampled).Int("max_successes", s.maxSuccesses).Msg("Sampling mirrors")

	for _, id := range sample {
		if res.Count >= s.maxSuccesses {
			break
		}
		if err = ctx.Err(); err != nil {
			return res, err
		}

		r, err := s.store.Get(id)
		if err != nil {
			return res, fmt.Errorf("failed to read %s: %w", id, err)
		}
		if len(r.Mirrors) == 0 {
			continue
		}
		res.Checked++
		log.Debug().Str("id", id).Int("count", res.Count).Int64("total", res.Total).Msg("Checking")

		for _, url := range s.pickMirrors(r) {
			if res.Count >= s.maxSuccesses {
				break
			}
			size, err := s.prober.Probe(ctx, url)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return res, ctxErr
				}
				res.Failures++
				log.Warn().Err(err).Str("url", url).Msg("Probe skipped")
				continue
			}
			res.Count++
			res.Total += size
		}

		if res.Checked%s.progressEvery == 0 {
			log.Info().Int("checked", res.Checked).Msg(res.String())
		}
	}

	log.Info().Int("checked", res.Checked).Int("failures", res.Failures).
		Str("duration", time.Since(start).String()).Msg("Sampling complete")
	return res, nil
}

// draw returns up to sampleSize distinct ids chosen uniformly without replacement.
func (s *Sampler) draw() ([]string, error) {
	keys, err := s.store.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}

	n := min(s.sampleSize, len(keys))
	// partial Fisher-Yates: the first n slots end up a uniform sample
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(keys)-i)
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys[:n], nil
}

// pickMirrors returns a random subset of r's mirror urls whose size is uniform between one
// and the number of mirrors.
func (s *Sampler) pickMirrors(r *record.VideoRecord) []string {
	indices := r.MirrorIndices()
	s.rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	k := s.rng.IntN(len(indices)) + 1

	urls := make([]string, k)
	for i, idx := range indices[:k] {
		urls[i] = r.Mirrors[idx]
	}
	return urls
}
