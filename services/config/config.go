package config

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"
	"github.com/webtor-io/lazymap"
)

const (
	settingsKeyFlag         = "settings-key"
	settingsCacheFlag       = "settings-cache-ttl"
	syncEnabledFlag         = "sync-collection-and-episode-finish"
	nsfwPrivateFlag         = "nsfw-private"
	checkReachabilityFlag   = "check-reachability"
	defaultSettingsRedisKey = "bangumi-sync:settings"
)

const (
	fieldSyncEnabled = "syncCollectionAndEpisodeFinish"
	fieldNsfwPrivate = "nsfwPrivate"
	fieldToken       = "token"
	fieldProxyURL    = "proxyUrl"
	fieldReachable   = "checkReachability"
)

const cacheKey = "settings"

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   settingsKeyFlag,
			Usage:  "redis hash holding runtime settings",
			Value:  defaultSettingsRedisKey,
			EnvVar: "SETTINGS_KEY",
		},
		cli.DurationFlag{
			Name:   settingsCacheFlag,
			Usage:  "how long settings are cached",
			Value:  10 * time.Second,
			EnvVar: "SETTINGS_CACHE_TTL",
		},
		cli.BoolFlag{
			Name:   syncEnabledFlag,
			Usage:  "push collection and episode progress to bangumi",
			EnvVar: "SYNC_COLLECTION_AND_EPISODE_FINISH",
		},
		cli.BoolFlag{
			Name:   nsfwPrivateFlag,
			Usage:  "mark nsfw subjects private on bangumi",
			EnvVar: "NSFW_PRIVATE",
		},
		cli.BoolFlag{
			Name:   checkReachabilityFlag,
			Usage:  "check that bangumi is reachable after settings change",
			EnvVar: "CHECK_REACHABILITY",
		},
	)
}

// Settings are runtime toggles that can change without a restart.
type Settings struct {
	SyncEnabled       bool
	NsfwPrivate       bool
	CheckReachability bool
	Token             string
	ProxyURL          string
}

type Store struct {
	cl       redis.UniversalClient
	key      string
	defaults Settings
	cache    *lazymap.LazyMap[*Settings]
}

// New returns a store backed by redis. Without redis the flag values are served as is.
func New(c *cli.Context, rc *cs.RedisClient, defaultToken string, defaultProxyURL string) *Store {
	var cl redis.UniversalClient
	if rc != nil {
		cl = rc.Get()
	}
	return NewStore(cl, c.String(settingsKeyFlag), c.Duration(settingsCacheFlag), Settings{
		SyncEnabled:       c.Bool(syncEnabledFlag),
		NsfwPrivate:       c.Bool(nsfwPrivateFlag),
		CheckReachability: c.Bool(checkReachabilityFlag),
		Token:             defaultToken,
		ProxyURL:          defaultProxyURL,
	})
}

func NewStore(cl redis.UniversalClient, key string, ttl time.Duration, defaults Settings) *Store {
	if key == "" {
		key = defaultSettingsRedisKey
	}
	return &Store{
		cl:       cl,
		key:      key,
		defaults: defaults,
		cache: lazymap.New[*Settings](&lazymap.Config{
			Expire:      ttl,
			ErrorExpire: time.Second,
		}),
	}
}

// Get returns settings, possibly cached.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	return s.cache.Get(cacheKey, func() (*Settings, error) {
		return s.Load(ctx)
	})
}

// Load reads settings from redis bypassing the cache.
func (s *Store) Load(ctx context.Context) (*Settings, error) {
	st := s.defaults
	if s.cl == nil {
		return &st, nil
	}
	m, err := s.cl.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read settings from %v", s.key)
	}
	st.SyncEnabled = parseBool(m, fieldSyncEnabled, st.SyncEnabled)
	st.NsfwPrivate = parseBool(m, fieldNsfwPrivate, st.NsfwPrivate)
	st.CheckReachability = parseBool(m, fieldReachable, st.CheckReachability)
	if v, ok := m[fieldToken]; ok {
		st.Token = strings.TrimSpace(v)
	}
	if v, ok := m[fieldProxyURL]; ok {
		st.ProxyURL = strings.TrimSpace(v)
	}
	return &st, nil
}

func parseBool(m map[string]string, field string, def bool) bool {
	v, ok := m[field]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.WithError(err).WithField("field", field).Warn("invalid settings value, using default")
		return def
	}
	return b
}

// Set writes settings to redis.
func (s *Store) Set(ctx context.Context, st *Settings) error {
	if s.cl == nil {
		return errors.New("settings store has no redis")
	}
	err := s.cl.HSet(ctx, s.key, map[string]any{
		fieldSyncEnabled: strconv.FormatBool(st.SyncEnabled),
		fieldNsfwPrivate: strconv.FormatBool(st.NsfwPrivate),
		fieldReachable:   strconv.FormatBool(st.CheckReachability),
		fieldToken:       st.Token,
		fieldProxyURL:    st.ProxyURL,
	}).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to write settings to %v", s.key)
	}
	return nil
}
