package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-post-classifier/internal/models"
)

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RowsRead.Add(10)
	assert.InDelta(t, 10, testutil.ToFloat64(a.RowsRead), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.RowsRead), 0)
}

func TestSetBands(t *testing.T) {
	m := New()
	m.SetBands("before", map[models.Band]int{models.BandLow: 700, models.BandOverflow: 100})
	m.SetBands("after", map[models.Band]int{models.BandLow: 100, models.BandOverflow: 100})

	assert.InDelta(t, 700, testutil.ToFloat64(m.BandPosts.WithLabelValues("before", "0-5")), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(m.BandPosts.WithLabelValues("after", "0-5")), 0)
	assert.Equal(t, 4, testutil.CollectAndCount(m.BandPosts))
}

func TestObserveStage(t *testing.T) {
	m := New()
	m.ObserveStage("split", time.Now().Add(-time.Second))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageSeconds))
}

func TestHandler(t *testing.T) {
	m := New()
	m.SplitSize.WithLabelValues(models.SplitTrain).Set(810)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hnprep_split_size{split="train"} 810`)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RowsDropped.WithLabelValues("0-5").Add(3)
	path := filepath.Join(t.TempDir(), "hnprep.prom")

	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `hnprep_rows_dropped_total{band="0-5"} 3`))
}
