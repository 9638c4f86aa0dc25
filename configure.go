package main

import (
	"github.com/urfave/cli"
)

func configure(app *cli.App) {
	serveCMD := makeServeCMD()
	migrationCMD := makePGMigrationCMD()
	syncCMD := makeSyncCMD()
	bangumiCMD := makeBangumiCMD()
	app.Commands = []cli.Command{serveCMD, migrationCMD, syncCMD, bangumiCMD}
}
