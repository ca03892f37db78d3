// Package program resolves an identifier to a program record.
package program

import (
	"context"
	"net/url"
	"time"

	"github.com/garyellow/program-lookup/internal/dataset"
	domerrors "github.com/garyellow/program-lookup/internal/errors"
	"github.com/garyellow/program-lookup/internal/logger"
	"github.com/garyellow/program-lookup/internal/metrics"
	"github.com/garyellow/program-lookup/internal/stringutil"
)

// MatchKey names the column an identifier matched on.
type MatchKey string

// Match keys, also used as metric labels.
const (
	MatchCourseCode  MatchKey = "course_code"
	MatchProgramName MatchKey = "program_name"
)

var loadWrapper = domerrors.NewWrapper("program", "load_dataset")

// DatasetProvider supplies the loaded dataset. Implemented by *dataset.Loader.
type DatasetProvider interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
}

// Service looks up programs in the dataset.
type Service struct {
	datasets DatasetProvider
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewService creates a Service. metrics may be nil.
func NewService(datasets DatasetProvider, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		datasets: datasets,
		logger:   log.WithModule("program"),
		metrics:  m,
	}
}

// FindProgram returns the program whose course code or program name equals
// identifier, ignoring case. identifier may be percent-encoded.
//
// Errors:
//   - *errors.ValidationError when identifier is empty or badly encoded
//   - *errors.LoadError, wrapped with a user message, when the dataset
//     cannot be loaded
//   - errors.ErrNotFound when nothing matches
func (s *Service) FindProgram(ctx context.Context, identifier string) (*NormalizedProgram, error) {
	start := time.Now()

	decoded, err := decodeIdentifier(identifier)
	if err != nil {
		s.record(metrics.ResultInvalid, start)
		return nil, err
	}

	ds, err := s.datasets.Load(ctx)
	if err != nil {
		s.record(metrics.ResultError, start)
		return nil, loadWrapper.Wrap(err, "Could not load program data.")
	}

	rec, key, ok := Match(ds, decoded)
	if !ok {
		s.record(metrics.ResultNotFound, start)
		s.logger.WithField("identifier", decoded).DebugContext(ctx, "Program not found")
		return nil, domerrors.ErrNotFound
	}

	s.record(metrics.ResultFound, start)
	if s.metrics != nil {
		s.metrics.RecordLookupMatch(string(key))
	}
	s.logger.WithField("identifier", decoded).
		WithField("match", string(key)).
		DebugContext(ctx, "Program found")

	p := Normalize(rec)
	return &p, nil
}

func (s *Service) record(result string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordLookup(result, time.Since(start).Seconds())
	}
}

// decodeIdentifier percent-decodes identifier and rejects empty input.
func decodeIdentifier(identifier string) (string, error) {
	if identifier == "" {
		return "", domerrors.NewValidationError("id", "Program ID is required.")
	}
	decoded, err := url.PathUnescape(identifier)
	if err != nil {
		return "", domerrors.NewValidationError("id", "Program ID is not a valid encoded value.")
	}
	if decoded == "" {
		return "", domerrors.NewValidationError("id", "Program ID is required.")
	}
	return decoded, nil
}

// Match scans ds for identifier. A course code match anywhere in the dataset
// wins over a program name match; within each key the first record in file
// order wins.
//
// Comparison uses Unicode full case folding, which is looser than plain
// lowercasing: "STRASSE" matches "straße".
func Match(ds *dataset.Dataset, identifier string) (dataset.Record, MatchKey, bool) {
	for _, key := range []struct {
		column string
		match  MatchKey
	}{
		{ColumnCourseCode, MatchCourseCode},
		{ColumnProgramName, MatchProgramName},
	} {
		for _, rec := range ds.All() {
			v, ok := rec.Get(key.column)
			if ok && v != "" && stringutil.EqualFold(v, identifier) {
				return rec, key.match, true
			}
		}
	}
	return dataset.Record{}, "", false
}
