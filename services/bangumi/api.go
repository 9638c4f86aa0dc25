package bangumi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"github.com/webtor-io/lazymap"
)

const (
	bangumiApiURLFlag       = "bangumi-api-url"
	TokenFlag               = "bangumi-token"
	bangumiUserAgentFlag    = "bangumi-user-agent"
	ProxyURLFlag            = "bangumi-proxy-url"
	bangumiTimeoutFlag      = "bangumi-timeout"
	bangumiEpisodeCacheFlag = "bangumi-episode-cache-ttl"
)

const (
	defaultUserAgent = "webtor-io/bangumi-sync (https://github.com/webtor-io/bangumi-sync)"
	searchDateCookie = "chii_searchDateLine=0"
	tokenPrefix      = "Bearer "
	defaultOffset    = 0
	defaultLimit     = 100
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   bangumiApiURLFlag,
			Usage:  "bangumi api url",
			Value:  "https://api.bgm.tv",
			EnvVar: "BANGUMI_API_URL",
		},
		cli.StringFlag{
			Name:   TokenFlag,
			Usage:  "bangumi access token",
			EnvVar: "BANGUMI_TOKEN",
		},
		cli.StringFlag{
			Name:   bangumiUserAgentFlag,
			Usage:  "bangumi user agent",
			Value:  defaultUserAgent,
			EnvVar: "BANGUMI_USER_AGENT",
		},
		cli.StringFlag{
			Name:   ProxyURLFlag,
			Usage:  "bangumi outbound proxy (http://, https:// or socks5://)",
			EnvVar: "BANGUMI_PROXY_URL",
		},
		cli.DurationFlag{
			Name:   bangumiTimeoutFlag,
			Usage:  "bangumi request timeout",
			Value:  10 * time.Second,
			EnvVar: "BANGUMI_TIMEOUT",
		},
		cli.DurationFlag{
			Name:   bangumiEpisodeCacheFlag,
			Usage:  "how long resolved episode lists are cached",
			Value:  time.Minute,
			EnvVar: "BANGUMI_EPISODE_CACHE_TTL",
		},
	)
}

// requestConfig is replaced as a whole, never mutated after creation.
type requestConfig struct {
	header http.Header
	cl     *http.Client
	token  string
	proxy  string
}

type Api struct {
	url       string
	userAgent string
	timeout   time.Duration
	rc        atomic.Pointer[requestConfig]
	episodes  *lazymap.LazyMap[[]Episode]
}

func New(c *cli.Context) *Api {
	api := newApi(
		c.String(bangumiApiURLFlag),
		c.String(bangumiUserAgentFlag),
		c.Duration(bangumiTimeoutFlag),
		c.Duration(bangumiEpisodeCacheFlag),
	)
	api.Refresh(c.String(TokenFlag), c.String(ProxyURLFlag))
	log.Infof("bangumi api endpoint %v", api.url)
	return api
}

func newApi(u string, userAgent string, timeout time.Duration, episodeCacheTTL time.Duration) *Api {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	api := &Api{
		url:       strings.TrimSuffix(u, "/"),
		userAgent: userAgent,
		timeout:   timeout,
		episodes: lazymap.New[[]Episode](&lazymap.Config{
			Expire:      episodeCacheTTL,
			ErrorExpire: 5 * time.Second,
		}),
	}
	api.rc.Store(api.makeRequestConfig("", NewHTTPClient("", timeout), ""))
	return api
}

func (api *Api) makeRequestConfig(token string, cl *http.Client, proxyURL string) *requestConfig {
	h := http.Header{}
	h.Set("User-Agent", api.userAgent)
	h.Set("Cookie", searchDateCookie)
	h.Set("Access-Control-Allow-Origin", "*")
	token = strings.TrimSpace(token)
	if token != "" {
		h.Set("Authorization", tokenPrefix+token)
	}
	return &requestConfig{
		header: h,
		cl:     cl,
		token:  token,
		proxy:  proxyURL,
	}
}

// RefreshHeaders rebuilds all request headers for the token and keeps the current HTTP client.
func (api *Api) RefreshHeaders(token string) {
	cur := api.rc.Load()
	api.rc.Store(api.makeRequestConfig(token, cur.cl, cur.proxy))
	log.WithField("authorized", strings.TrimSpace(token) != "").Debug("bangumi headers refreshed")
}

// Refresh rebuilds headers and the HTTP client together.
func (api *Api) Refresh(token string, proxyURL string) {
	proxyURL = strings.TrimSpace(proxyURL)
	cur := api.rc.Load()
	cl := cur.cl
	if cl == nil || proxyURL != cur.proxy {
		cl = NewHTTPClient(proxyURL, api.timeout)
	}
	api.rc.Store(api.makeRequestConfig(token, cl, proxyURL))
	log.WithFields(log.Fields{
		"authorized": strings.TrimSpace(token) != "",
		"proxy":      proxyURL != "",
	}).Info("bangumi client refreshed")
}

func (api *Api) do(ctx context.Context, method string, path string, query url.Values, body any) (*http.Response, error) {
	rc := api.rc.Load()
	u := api.url + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header = rc.header.Clone()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := rc.cl.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	return resp, nil
}

func (api *Api) doJSON(ctx context.Context, method string, path string, query url.Values, body any, result any) error {
	resp, err := api.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readStatusError(resp)
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// AssertDomainReachable reports whether the api base answers at all; 404 counts as reachable.
func (api *Api) AssertDomainReachable(ctx context.Context) bool {
	resp, err := api.do(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		log.WithError(err).WithField("url", api.url).Warn("bangumi api is not reachable")
		return false
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	return (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == http.StatusNotFound
}

func (api *Api) DownloadCover(ctx context.Context, u string) ([]byte, error) {
	if strings.TrimSpace(u) == "" {
		return nil, errors.New("cover url is empty")
	}
	rc := api.rc.Load()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", api.userAgent)
	resp, err := rc.cl.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readStatusError(resp)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read cover")
	}
	return b, nil
}
