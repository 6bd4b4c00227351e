package validate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pmordasov/veracity/internal/model"
	"github.com/pmordasov/veracity/internal/util"
)

// Validator builds source metadata for the arbiter: for each search-result
// URL it classifies authority and probes accessibility with a HEAD request.
// Probes respect robots.txt and run concurrently under a worker bound.
// Validation is best-effort; failures degrade to unknown metadata and
// never fail the claim.
type Validator struct {
	httpClient *http.Client
	maxWorkers int
	authority  *AuthorityClassifier
	robots     *util.RobotsChecker
	userAgent  string
}

// NewValidator creates a new validator
func NewValidator(timeout time.Duration, maxWorkers int, authConfig *model.AuthorityConfig, userAgent, httpProxy, httpsProxy string) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	if userAgent == "" {
		userAgent = "Veracity/0.1 (+https://github.com/pmordasov/veracity)"
	}

	return &Validator{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, ""),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		authority:  NewAuthorityClassifier(authConfig),
		robots:     util.NewRobotsChecker(userAgent, timeout),
		userAgent:  userAgent,
	}
}

// Check probes all URLs concurrently and returns one SourceMeta per URL,
// in input order.
func (v *Validator) Check(ctx context.Context, urls []string) []model.SourceMeta {
	if len(urls) == 0 {
		return nil
	}

	metas := make([]model.SourceMeta, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxWorkers)
	for i, rawURL := range urls {
		g.Go(func() error {
			metas[i] = v.checkOne(gctx, rawURL)
			return nil
		})
	}
	_ = g.Wait()

	return metas
}

// checkOne probes a single URL
func (v *Validator) checkOne(ctx context.Context, rawURL string) model.SourceMeta {
	meta := model.SourceMeta{
		URL:       rawURL,
		Authority: v.authority.Classify(rawURL),
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		meta.Host = parsed.Hostname()
	}

	if !v.robots.Allowed(ctx, rawURL) {
		meta.Error = "disallowed by robots.txt"
		return meta
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		meta.Error = fmt.Sprintf("create request: %v", err)
		return meta
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		meta.Error = fmt.Sprintf("request failed: %v", err)
		return meta
	}
	defer func() { _ = resp.Body.Close() }()

	meta.StatusCode = resp.StatusCode
	meta.IsAccessible = resp.StatusCode >= 200 && resp.StatusCode < 400
	return meta
}

// RenderMetadata formats source metadata as the text block handed to the
// arbiter. Returns an empty string when there is nothing to report.
func RenderMetadata(metas []model.SourceMeta) string {
	if len(metas) == 0 {
		return ""
	}

	var b strings.Builder
	for i, m := range metas {
		if i > 0 {
			b.WriteString("\n")
		}
		state := "inaccessible"
		if m.IsAccessible {
			state = "accessible"
		}
		if m.Error != "" {
			state = "unverified (" + m.Error + ")"
		}
		fmt.Fprintf(&b, "- %s | authority: %s | %s", m.Host, m.Authority, state)
	}
	return b.String()
}
