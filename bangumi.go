package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/webtor-io/bangumi-sync/services/bangumi"
)

const (
	keywordFlag = "keyword"
	kindFlag    = "type"
	offsetFlag  = "offset"
	limitFlag   = "limit"
)

func makeBangumiCMD() cli.Command {
	bangumiCMD := cli.Command{
		Name:    "bangumi",
		Aliases: []string{"b"},
		Usage:   "Queries bgm.tv",
	}
	configureBangumi(&bangumiCMD)
	return bangumiCMD
}

func configureBangumi(c *cli.Command) {
	searchCmd := cli.Command{
		Name:    "search",
		Usage:   "Searches subjects by keyword",
		Aliases: []string{"s"},
		Action:  bangumiSearch,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  keywordFlag,
				Usage: "search keyword",
			},
			cli.IntFlag{
				Name:  kindFlag,
				Usage: "subject type code (1 book, 2 anime, 3 music, 4 game, 6 real)",
			},
			cli.IntFlag{
				Name:  offsetFlag,
				Usage: "search offset, switches to the v0 search api when set with limit",
			},
			cli.IntFlag{
				Name:  limitFlag,
				Usage: "search limit, switches to the v0 search api",
			},
		},
	}
	meCmd := cli.Command{
		Name:   "me",
		Usage:  "Prints the authorized user",
		Action: bangumiMe,
	}
	episodesCmd := cli.Command{
		Name:    "episodes",
		Usage:   "Lists all episodes of a subject",
		Aliases: []string{"e"},
		Action:  bangumiEpisodes,
		Flags: []cli.Flag{
			cli.Int64Flag{
				Name:  platformIDFlag,
				Usage: "subject id",
			},
		},
	}
	c.Subcommands = []cli.Command{searchCmd, meCmd, episodesCmd}
	for k := range c.Subcommands {
		c.Subcommands[k].Flags = bangumi.RegisterFlags(c.Subcommands[k].Flags)
	}
}

func bangumiSearch(c *cli.Context) error {
	ctx := context.Background()
	api := bangumi.New(c)
	if limit := c.Int(limitFlag); limit > 0 {
		res, err := api.SearchSubjectsNext(ctx, c.String(keywordFlag), c.Int(offsetFlag), limit)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
	var kind *bangumi.SubjectKind
	if t := c.Int(kindFlag); t > 0 {
		k := bangumi.SubjectKind(t)
		kind = &k
	}
	res, err := api.SearchSubjects(ctx, c.String(keywordFlag), kind)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func bangumiMe(c *cli.Context) error {
	u, err := bangumi.New(c).GetMe(context.Background())
	if err != nil {
		return err
	}
	if u == nil {
		return errors.Errorf("not authorized, set --%v", bangumi.TokenFlag)
	}
	return printJSON(u)
}

func bangumiEpisodes(c *cli.Context) error {
	es, err := bangumi.New(c).FindAllEpisodes(context.Background(), c.Int64(platformIDFlag), nil)
	if err != nil {
		return err
	}
	return printJSON(es)
}
