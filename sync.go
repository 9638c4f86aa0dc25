package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/models"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
	ssync "github.com/webtor-io/bangumi-sync/services/sync"
)

const (
	platformFlag   = "platform"
	platformIDFlag = "id"
	subjectIDFlag  = "subject-id"
	dryRunFlag     = "dry-run"
)

func makeSyncCMD() cli.Command {
	syncCMD := cli.Command{
		Name:    "sync",
		Aliases: []string{"sy"},
		Usage:   "Synchronizes subjects with remote platforms",
	}
	configureSync(&syncCMD)
	return syncCMD
}

func configureSync(c *cli.Command) {
	pullCmd := cli.Command{
		Name:    "pull",
		Usage:   "Pulls a new subject from a platform",
		Aliases: []string{"p"},
		Action:  syncPull,
	}
	mergeCmd := cli.Command{
		Name:    "merge",
		Usage:   "Merges platform data into an existing subject",
		Aliases: []string{"m"},
		Action:  syncMerge,
	}
	mergeCmd.Flags = append(mergeCmd.Flags,
		cli.StringFlag{
			Name:  subjectIDFlag,
			Usage: "subject to merge into",
		},
	)
	c.Subcommands = []cli.Command{pullCmd, mergeCmd}
	for k := range c.Subcommands {
		configureSubSync(&c.Subcommands[k])
	}
}

func configureSubSync(c *cli.Command) {
	c.Flags = append(c.Flags,
		cli.StringFlag{
			Name:  platformFlag,
			Usage: "sync platform",
			Value: models.SyncPlatformBgmTv.String(),
		},
		cli.StringFlag{
			Name:  platformIDFlag,
			Usage: "subject id on the platform",
		},
		cli.BoolFlag{
			Name:  dryRunFlag,
			Usage: "print the result without writing subjects, tags, covers or migrations",
		},
	)
	c.Flags = cs.RegisterPGFlags(c.Flags)
	c.Flags = configureSynchronizers(c.Flags)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func makeSyncRegistry(c *cli.Context, pg *cs.PG) (*ssync.Registry, error) {
	api := bangumi.New(c)
	if c.Bool(dryRunFlag) {
		return makeReadOnlyRegistry(pg, api), nil
	}
	// Setting Migrations
	err := pgMigrate(c)
	if err != nil {
		return nil, err
	}
	return makeRegistry(c, http.DefaultClient, pg, api), nil
}

func syncPull(c *cli.Context) error {
	ctx := context.Background()

	// Setting DB
	pg := cs.NewPG(c)
	defer pg.Close()

	// Setting Registry
	reg, err := makeSyncRegistry(c, pg)
	if err != nil {
		return err
	}
	db := pg.Get()
	if db == nil {
		return errors.New("db is nil")
	}

	s, err := reg.Pull(ctx, models.ParseSyncPlatform(c.String(platformFlag)), c.String(platformIDFlag))
	if err != nil {
		return err
	}
	if s == nil {
		log.Warn("nothing to sync")
		return nil
	}
	if !c.Bool(dryRunFlag) {
		err = models.CreateSubject(ctx, db, s)
		if err != nil {
			return err
		}
		log.WithField("subject_id", s.SubjectID).Info("subject stored")
	}
	return printJSON(s)
}

func syncMerge(c *cli.Context) error {
	ctx := context.Background()

	id, err := uuid.FromString(c.String(subjectIDFlag))
	if err != nil {
		return errors.Wrapf(err, "wrong %v", subjectIDFlag)
	}

	// Setting DB
	pg := cs.NewPG(c)
	defer pg.Close()

	// Setting Registry
	reg, err := makeSyncRegistry(c, pg)
	if err != nil {
		return err
	}
	db := pg.Get()
	if db == nil {
		return errors.New("db is nil")
	}

	existing, err := models.GetSubjectByID(ctx, db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return errors.Errorf("subject %v not found", id)
	}

	s, err := reg.Merge(ctx, models.ParseSyncPlatform(c.String(platformFlag)), existing, c.String(platformIDFlag))
	if err != nil {
		return err
	}
	if s == nil {
		log.Warn("nothing to sync")
		return nil
	}
	if !c.Bool(dryRunFlag) {
		err = models.UpdateSubject(ctx, db, s)
		if err != nil {
			return err
		}
		log.WithField("subject_id", s.SubjectID).Info("subject updated")
	}
	return printJSON(s)
}
