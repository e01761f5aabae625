package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	tel := NewScopedAPI("profile", NewScopedAPI("fetcher", rec))

	tel.ReportBroken("fetch", "boom")
	tel.ReportWarning("close")
	tel.ReportDebug("waiting")
	tel.ReportCount("samples", 3)

	broken := rec.Find("broken", "fetch")
	require.Len(t, broken, 1)
	require.Equal(t, "fetcher: profile: fetch", broken[0].ID)
	require.Equal(t, []any{"boom"}, broken[0].Params)

	require.Len(t, rec.Find("warning", "close"), 1)
	require.Len(t, rec.Find("debug", "waiting"), 1)

	counts := rec.Find("count", "samples")
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)

	require.Empty(t, rec.Find("broken", "close"))
}

func TestInstrumentResty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	rec := &Recorder{}
	client := resty.New()
	InstrumentResty(client, rec)

	res, err := client.R().Get(srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, res.StatusCode())

	require.Len(t, rec.Find("debug", report_resty_request), 1)
	require.Len(t, rec.Find("debug", report_resty_response), 1)
	require.Empty(t, rec.Find("broken", report_resty_response))

	srv.Close()
	_, err = client.R().Get(srv.URL)
	require.Error(t, err)
	require.Len(t, rec.Find("broken", report_resty_response), 1)
}
