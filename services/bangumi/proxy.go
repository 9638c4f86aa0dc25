package bangumi

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

const connectTimeout = 3 * time.Second

// NewHTTPClient builds a client with fixed connect and read timeouts.
// An empty or invalid proxyURL results in a direct connection.
func NewHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
	if proxyURL != "" {
		if err := applyProxy(tr, dialer, proxyURL); err != nil {
			log.WithError(err).WithField("proxy", proxyURL).Warn("invalid proxy config, using direct connection")
		}
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}

func applyProxy(tr *http.Transport, dialer *net.Dialer, proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return errors.Wrap(err, "parse proxy url")
	}
	if u.Host == "" {
		return errors.Errorf("proxy host is empty in %q", proxyURL)
	}
	switch u.Scheme {
	case "http", "https":
		tr.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, dialer)
		if err != nil {
			return errors.Wrap(err, "create socks dialer")
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return errors.New("socks dialer does not support context")
		}
		tr.DialContext = cd.DialContext
	default:
		return errors.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return nil
}
