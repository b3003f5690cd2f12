package httprouter

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus"
)

func TestEnablePrometheusMetrics(t *testing.T) {
	r := &HTTProuter{}
	r.EnablePrometheusMetrics("test_http")
	qt.Assert(t, r.Init("127.0.0.1", 0), qt.IsNil)
	r.AddRawHTTPHandler("/hello", http.MethodGet, func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("hello")); err != nil {
			t.Error(err)
		}
	})

	resp, err := http.Get(fmt.Sprintf("http://%s/hello", r.Address()))
	qt.Assert(t, err, qt.IsNil)
	body, err := io.ReadAll(resp.Body)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, resp.Body.Close(), qt.IsNil)
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusOK)
	qt.Assert(t, string(body), qt.Equals, "hello")

	// the request counters must show up in the default registry
	families, err := prometheus.DefaultGatherer.Gather()
	qt.Assert(t, err, qt.IsNil)
	found := false
	for _, mf := range families {
		if mf.GetName() == "chi_requests_total" {
			found = true
			break
		}
	}
	qt.Assert(t, found, qt.IsTrue)
}
