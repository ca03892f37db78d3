package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garyellow/program-lookup/internal/dataset"
	domerrors "github.com/garyellow/program-lookup/internal/errors"
	"github.com/garyellow/program-lookup/internal/logger"
	"github.com/garyellow/program-lookup/internal/metrics"
	"github.com/garyellow/program-lookup/internal/program"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type finderFunc func(ctx context.Context, id string) (*program.NormalizedProgram, error)

func (f finderFunc) FindProgram(ctx context.Context, id string) (*program.NormalizedProgram, error) {
	return f(ctx, id)
}

type staticProvider struct {
	ds  *dataset.Dataset
	err error
}

func (p staticProvider) Load(context.Context) (*dataset.Dataset, error) {
	return p.ds, p.err
}

func newRouter(finder ProgramFinder) (*gin.Engine, *metrics.Metrics) {
	return newRouterWith(finder, metrics.New(prometheus.NewRegistry()))
}

func newServiceRouter(p program.DatasetProvider) (*gin.Engine, *metrics.Metrics) {
	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	return newRouterWith(program.NewService(p, log, m), m)
}

// newRouterWith mirrors the server's raw path handling so %2F survives routing.
func newRouterWith(finder ProgramFinder, m *metrics.Metrics) (*gin.Engine, *metrics.Metrics) {
	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = false
	NewHandler(finder, logger.NewWithWriter("error", io.Discard), m).Register(router)
	return router, m
}

func sampleProvider() staticProvider {
	rec := dataset.NewRecord(map[string]string{
		program.ColumnCourseCode:  "CS101",
		program.ColumnProgramName: "Intro to CS",
		program.ColumnDegreeName:  "BSc",
		program.ColumnAreaOfStudy: "Computing",
	})
	slash := dataset.NewRecord(map[string]string{
		program.ColumnCourseCode:  "ENG/200",
		program.ColumnProgramName: "English Literature",
	})
	return staticProvider{ds: dataset.New([]dataset.Record{rec, slash}, nil, "test", time.Now())}
}

func do(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestGetProgram_Found(t *testing.T) {
	router, _ := newServiceRouter(sampleProvider())

	w := do(t, router, "/api/programs/cs101")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{
		"courseCode":     "CS101",
		"programName":    "Intro to CS",
		"degreeName":     "BSc",
		"description":    "",
		"areaOfStudy":    "Computing",
		"prerequisites":  "",
		"websiteLink":    "",
		"universityName": "University of Toronto",
		"facultyName":    "",
		"location":       "Ontario",
	}, got)
}

func TestGetProgram_EncodedIdentifiers(t *testing.T) {
	router, _ := newServiceRouter(sampleProvider())

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"encoded space", "/api/programs/Intro%20to%20CS", "CS101"},
		{"encoded slash", "/api/programs/eng%2F200", "ENG/200"},
		{"name with mixed case", "/api/programs/ENGLISH%20literature", "ENG/200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.target)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var got program.NormalizedProgram
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got.CourseCode)
		})
	}
}

func TestGetProgram_NotFound(t *testing.T) {
	router, m := newServiceRouter(sampleProvider())

	w := do(t, router, "/api/programs/ZZZ999")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, MsgNotFound, decodeMessage(t, w))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("not_found", RouteProgram)), 0)
}

func TestGetProgram_MissingID(t *testing.T) {
	called := false
	router, _ := newRouter(finderFunc(func(context.Context, string) (*program.NormalizedProgram, error) {
		called = true
		return nil, nil
	}))

	w := do(t, router, "/api/programs")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgIDRequired, decodeMessage(t, w))
	assert.False(t, called)
}

func TestGetProgram_MalformedEncoding(t *testing.T) {
	router, m := newServiceRouter(sampleProvider())

	// net/url rejects %ZZ when parsing a target, so set the raw path by hand.
	req := httptest.NewRequest(http.MethodGet, "/api/programs/CS", nil)
	req.URL.RawPath = "/api/programs/CS%ZZ"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeMessage(t, w))
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("invalid_input", RouteProgram)), 0)
}

func TestGetProgram_LoadFailure(t *testing.T) {
	loadErr := domerrors.NewLoadError("data/programs.xlsx", errors.New("open: no such file"))
	router, m := newServiceRouter(staticProvider{err: loadErr})

	w := do(t, router, "/api/programs/CS101")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Could not load program data.", decodeMessage(t, w))
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("dataset_unavailable", RouteProgram)), 0)
}

func TestGetProgram_UnexpectedError(t *testing.T) {
	router, _ := newRouter(finderFunc(func(context.Context, string) (*program.NormalizedProgram, error) {
		return nil, errors.New("something broke")
	}))

	w := do(t, router, "/api/programs/CS101")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "something broke", decodeMessage(t, w))
}

func TestGetProgram_PassesRawParam(t *testing.T) {
	var got string
	router, _ := newRouter(finderFunc(func(_ context.Context, id string) (*program.NormalizedProgram, error) {
		got = id
		return &program.NormalizedProgram{}, nil
	}))

	w := do(t, router, "/api/programs/a%2Fb%20c")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a%2Fb%20c", got, "decoding is left to the service")
}

func TestClassify_BareLoadErrorHidesSource(t *testing.T) {
	_, msg, _ := classify(domerrors.NewLoadError("/srv/data/programs.xlsx", errors.New("permission denied")))
	assert.Equal(t, MsgLoadFailed, msg)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", domerrors.NewValidationError("id", "bad"), http.StatusBadRequest, "invalid_input"},
		{"not found", domerrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"wrapped not found", errors.Join(errors.New("ctx"), domerrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"load", domerrors.NewLoadError("data/programs.xlsx", errors.New("y")), http.StatusInternalServerError, "dataset_unavailable"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg, errType := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, errType)
			assert.NotEmpty(t, msg)
		})
	}
}
