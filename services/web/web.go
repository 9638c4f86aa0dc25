package web

import (
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const (
	webHostFlag = "host"
	webPortFlag = "port"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   webHostFlag,
			Usage:  "listening host",
			Value:  "",
			EnvVar: "WEB_HOST",
		},
		cli.IntFlag{
			Name:   webPortFlag,
			Usage:  "http listening port",
			Value:  8080,
			EnvVar: "WEB_PORT",
		},
	)
}

type Web struct {
	addr string
	ln   net.Listener
	r    *gin.Engine
}

// New binds the listening socket right away, Serve only accepts on it.
func New(c *cli.Context, r *gin.Engine) (*Web, error) {
	return newWeb(fmt.Sprintf("%s:%d", c.String(webHostFlag), c.Int(webPortFlag)), r)
}

func newWeb(addr string, r *gin.Engine) (*Web, error) {
	if r == nil {
		return nil, errors.New("gin engine is nil")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to web listen to tcp connection")
	}
	return &Web{
		addr: ln.Addr().String(),
		ln:   ln,
		r:    r,
	}, nil
}

func (s *Web) Serve() error {
	log.Infof("serving Web at %v", s.addr)
	err := http.Serve(s.ln, s.r)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Web) Close() {
	log.Info("closing Web")
	defer func() {
		log.Info("web closed")
	}()
	_ = s.ln.Close()
}
