package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/handlers/event"
	hs "github.com/webtor-io/bangumi-sync/handlers/sync"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
	"github.com/webtor-io/bangumi-sync/services/config"
	"github.com/webtor-io/bangumi-sync/services/listener"
	w "github.com/webtor-io/bangumi-sync/services/web"
)

func makeServeCMD() cli.Command {
	serveCMD := cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Serves sync api and host event listeners",
		Action:  serve,
	}
	configureServe(&serveCMD)
	return serveCMD
}

func configureServe(c *cli.Command) {
	c.Flags = cs.RegisterPGFlags(c.Flags)
	c.Flags = cs.RegisterProbeFlags(c.Flags)
	c.Flags = cs.RegisterPprofFlags(c.Flags)
	c.Flags = cs.RegisterRedisClientFlags(c.Flags)
	c.Flags = cs.RegisterNATSFlags(c.Flags)
	c.Flags = w.RegisterFlags(c.Flags)
	c.Flags = config.RegisterFlags(c.Flags)
	c.Flags = listener.RegisterFlags(c.Flags)
	c.Flags = event.RegisterFlags(c.Flags)
	c.Flags = configureSynchronizers(c.Flags)
}

func serve(c *cli.Context) error {
	// Setting HTTP Client
	cl := http.DefaultClient

	// Setting DB
	pg := cs.NewPG(c)
	defer pg.Close()

	// Setting Bangumi Api
	api := bangumi.New(c)

	// Setting Migrations
	err := pgMigrate(c)
	if err != nil {
		return err
	}

	var servers []cs.Servable
	// Setting Probe
	probe := cs.NewProbe(c)
	if probe != nil {
		servers = append(servers, probe)
		defer probe.Close()
	}

	// Setting Pprof
	pprof := cs.NewPprof(c)
	if pprof != nil {
		servers = append(servers, pprof)
		defer pprof.Close()
	}

	// Setting Gin
	r := gin.Default()
	r.RedirectTrailingSlash = false

	// Setting Web
	web, err := w.New(c, r)
	if err != nil {
		return err
	}
	servers = append(servers, web)
	defer web.Close()

	// Setting Redis
	redis := cs.NewRedisClient(c)
	defer redis.Close()

	// Setting Settings
	settings := makeSettings(c, redis, api)

	// Setting Registry
	reg := makeRegistry(c, cl, pg, api)

	// Setting SyncHandler
	hs.RegisterHandler(r, reg, api, pg)

	// Setting Listeners
	ls := listener.New(c, api, settings, pg)
	defer ls.Close()

	// Setting NATS
	nats := cs.NewNATS(c)
	if nats != nil {
		defer nats.Close()
	}

	// Setting EventHandler
	eh := event.New(c, nats, ls)
	if eh != nil {
		servers = append(servers, eh)
		defer eh.Close()
	}

	// Setting Serve
	serve := cs.NewServe(servers...)

	// And SERVE!
	err = serve.Serve()
	if err != nil {
		log.WithError(err).Error("got server error")
	}
	return err
}
