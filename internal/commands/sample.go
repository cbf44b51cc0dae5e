package commands

import (
	"context"
	"fmt"
	"github.com/vodarchive/collate/internal/journal"
	"github.com/vodarchive/collate/internal/sampler"
	"github.com/vodarchive/collate/internal/storage"
	"time"
)

type SampleSizeCommand struct {
	SampleSize    *int `long:"sample-size" value-name:"N" description:"number of distinct videos drawn (default: 5000)"`
	MaxSuccesses  *int `long:"max-successes" value-name:"N" description:"stop after N successful probes (default: 1000)"`
	ProbeTimeout  *int `long:"probe-timeout" value-name:"SECONDS" description:"timeout of each HEAD request (default: 10)"`
	ProgressEvery *int `long:"progress-every" value-name:"N" description:"log progress after every N videos checked (default: 50)"`

	env *Env
}

func (c *SampleSizeCommand) Execute(_ []string) error {
	cfg, err := c.env.Settings()
	if err != nil {
		return err
	}

	sampleSize := pick(c.SampleSize, cfg.SampleSize)
	maxSuccesses := pick(c.MaxSuccesses, cfg.SampleSuccesses)
	progressEvery := pick(c.ProgressEvery, cfg.ProgressEvery)
	timeout := cfg.ProbeTimeout
	if c.ProbeTimeout != nil {
		timeout = time.Duration(*c.ProbeTimeout) * time.Second
	}
	for name, v := range map[string]int{
		"--sample-size": sampleSize, "--max-successes": maxSuccesses, "--progress-every": progressEvery,
	} {
		if v <= 0 {
			return usageError("%s must be positive", name)
		}
	}

	prober := sampler.NewHTTPProber(timeout)

	return c.env.withStore("sample-size", false, func(ctx context.Context, s *storage.Store, _ *journal.Manager) error {
		smp, err := sampler.New(&sampler.Config{
			Store:         s,
			Prober:        prober,
			SampleSize:    sampleSize,
			MaxSuccesses:  maxSuccesses,
			ProgressEvery: progressEvery,
		})
		if err != nil {
			return err
		}

		res, err := smp.Run(ctx)
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintln(c.env.Stdout, res.String()); err != nil {
			return err
		}
		_, err = res.Average()
		return err
	})
}

// pick returns the flag value when given, otherwise fallback.
func pick(flag *int, fallback int) int {
	if flag != nil {
		return *flag
	}
	return fallback
}
