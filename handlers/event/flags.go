package event

import "github.com/urfave/cli"

const (
	useEventHandlerFlag = "use-event-handler"
	eventStreamFlag     = "event-stream"
	eventConsumerFlag   = "event-consumer-prefix"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.BoolTFlag{
			Name:   useEventHandlerFlag,
			Usage:  "use event handler",
			EnvVar: "USE_EVENT_HANDLER",
		},
		cli.StringFlag{
			Name:   eventStreamFlag,
			Usage:  "jetstream stream with host events",
			Value:  "common",
			EnvVar: "EVENT_STREAM",
		},
		cli.StringFlag{
			Name:   eventConsumerFlag,
			Usage:  "prefix of durable consumer names",
			Value:  "bangumi-sync",
			EnvVar: "EVENT_CONSUMER_PREFIX",
		},
	)
}
