package profile

import (
	"context"
	"fmt"
	"net/url"
	"time"
	"utrhistory/internal/components/assert"
	"utrhistory/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const report_prober_probe = "prober.probe"

// Prober checks that the profile site answers before a browser is
// started for it.
type Prober interface {
	Probe(ctx context.Context, target string) error
}

type HTTPProber struct {
	http *resty.Client
	tel  telemetry.API
}

func NewHTTPProber(timeout time.Duration, tel telemetry.API) HTTPProber {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("profile", tel)

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	telemetry.InstrumentResty(client, tel)

	return HTTPProber{http: client, tel: tel}
}

// Probe fails with ErrUnreachable when no HTTP response comes back at
// all. Any status counts as reachable, the page itself may well be a
// login wall.
func (p HTTPProber) Probe(ctx context.Context, target string) error {
	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	root := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/"}

	res, err := p.http.R().
		SetContext(ctx).
		Head(root.String())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	p.tel.ReportDebug(report_prober_probe, root.String(), res.Status())
	return nil
}
