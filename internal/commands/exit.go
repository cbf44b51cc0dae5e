package commands

import (
	"errors"
	"fmt"
	flags "github.com/jessevdk/go-flags"
	"github.com/vodarchive/collate/internal/importer"
	"github.com/vodarchive/collate/internal/lookup"
	"github.com/vodarchive/collate/internal/query"
	"github.com/vodarchive/collate/internal/record"
	"github.com/vodarchive/collate/internal/sampler"
	"github.com/vodarchive/collate/internal/storage"
)

// Process exit codes.
const (
	ExitOK = iota
	ExitInternal
	ExitUsage
	ExitNotFound
	ExitExplicitNoMirrors
	ExitMirrorsUnknown
	ExitMalformedInput
	ExitNoData
	ExitPartialBatch
	ExitLocked
)

var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// ExitCode maps an invocation error onto its exit code.
func ExitCode(err error) int {
	var (
		flagsErr *flags.Error
		batchErr *lookup.BatchError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &batchErr):
		return ExitPartialBatch
	case errors.As(err, &flagsErr):
		if flagsErr.Type == flags.ErrHelp {
			return ExitOK
		}
		return ExitUsage
	case errors.Is(err, errUsage),
		errors.Is(err, query.ErrConflictingFilters),
		errors.Is(err, query.ErrInvalidFilter):
		return ExitUsage
	case errors.Is(err, record.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, record.ErrExplicitNoMirrors):
		return ExitExplicitNoMirrors
	case errors.Is(err, record.ErrMirrorsUnknown):
		return ExitMirrorsUnknown
	case errors.Is(err, importer.ErrMalformedInput):
		return ExitMalformedInput
	case errors.Is(err, sampler.ErrNoData):
		return ExitNoData
	case errors.Is(err, storage.ErrLocked):
		return ExitLocked
	default:
		return ExitInternal
	}
}
