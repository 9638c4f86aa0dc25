package main

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/services/attachment"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
	"github.com/webtor-io/bangumi-sync/services/config"
	ssync "github.com/webtor-io/bangumi-sync/services/sync"
)

func configureSynchronizers(f []cli.Flag) []cli.Flag {
	f = bangumi.RegisterFlags(f)
	f = attachment.RegisterFlags(f)
	f = cs.RegisterS3ClientFlags(f)
	return f
}

func makeRegistry(c *cli.Context, cl *http.Client, pg *cs.PG, api *bangumi.Api) *ssync.Registry {
	// Setting S3 Client
	s3Cl := cs.NewS3Client(c, cl)

	// Setting Attachment Sink
	sink := attachment.New(c, s3Cl)
	if sink == nil {
		log.Info("attachment sink is not configured, covers stay on remote urls")
	}

	// Setting Registry
	return ssync.NewRegistry(
		ssync.NewBangumi(api, pg, sink),
	)
}

// makeReadOnlyRegistry builds synchronizers that never write tags or covers.
func makeReadOnlyRegistry(pg *cs.PG, api *bangumi.Api) *ssync.Registry {
	return ssync.NewRegistry(
		ssync.NewReadOnlyBangumi(api, pg),
	)
}

func makeSettings(c *cli.Context, redis *cs.RedisClient, api *bangumi.Api) *config.Store {
	st := config.New(c, redis, c.String(bangumi.TokenFlag), c.String(bangumi.ProxyURLFlag))
	s, err := st.Load(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to load settings, using flags")
		return st
	}
	api.Refresh(s.Token, s.ProxyURL)
	return st
}
