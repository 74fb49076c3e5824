package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/tidwall/pretty"
	"github.com/urfave/cli/v2"
	"github.com/xeptore/flaw/v8"
	"golang.org/x/sync/errgroup"

	"github.com/xeptore/tidalapi/cache"
	"github.com/xeptore/tidalapi/config"
	"github.com/xeptore/tidalapi/constant"
	"github.com/xeptore/tidalapi/log"
	"github.com/xeptore/tidalapi/ratelimit"
	"github.com/xeptore/tidalapi/tidal"
	"github.com/xeptore/tidalapi/tidal/api"
	"github.com/xeptore/tidalapi/tidal/auth"
)

const (
	flagConfigFilePath = "config"
	flagLogLevel       = "log-level"
	flagLogFormat      = "log-format"
	flagNoCache        = "no-cache"
)

func main() {
	logger := log.NewPretty(os.Stderr).Level(zerolog.InfoLevel)
	defer func() {
		if r := recover(); nil != r {
			logger.Fatal().Func(log.Panic(r)).Msg("Application panicked")
		}
	}()

	if err := godotenv.Load(); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug().Msg(".env file was not found")
		} else {
			logger.Fatal().Err(err).Msg("Failed to load .env file")
		}
	}

	commonFlags := []cli.Flag{
		//nolint:exhaustruct
		&cli.StringFlag{
			Name:     flagConfigFilePath,
			Aliases:  []string{"c"},
			Usage:    "Config file path",
			Required: false,
		},
		//nolint:exhaustruct
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "Log level (trace, debug, info, warn, error)",
			Value: zerolog.InfoLevel.String(),
		},
		//nolint:exhaustruct
		&cli.StringFlag{
			Name:  flagLogFormat,
			Usage: "Log format (pretty, json)",
			Value: "pretty",
		},
	}

	//nolint:exhaustruct
	app := &cli.App{
		Name:     "tidalctl",
		Version:  constant.Version,
		Compiled: constant.CompileTime,
		Suggest:  true,
		Usage:    "TIDAL catalog client",
		Commands: []*cli.Command{
			//nolint:exhaustruct
			{
				Name:      "get",
				Aliases:   []string{"g"},
				Usage:     "Look up TIDAL links and print the responses",
				ArgsUsage: "<link>...",
				Action:    get,
				Flags: append(
					commonFlags,
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:  flagNoCache,
						Usage: "Disable the response cache",
					},
				),
			},
			//nolint:exhaustruct
			{
				Name:   "session",
				Usage:  "Print the session info of the stored credentials",
				Action: printSession,
				Flags:  commonFlags,
			},
		},
	}

	if err := app.Run(os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			return
		}
		if flawErr := new(flaw.Flaw); errors.As(err, &flawErr) {
			logger.Fatal().Func(log.Flaw(flawErr)).Msg("Application exited with flaw")
			return
		}
		logger.Fatal().Err(err).Msg("Application exited with error")
	}
}

func loadConfig(cliCtx *cli.Context, logger zerolog.Logger) (*config.Config, error) {
	cfgEnv := os.Getenv("CONFIG")
	cfgFilePath := cliCtx.String(flagConfigFilePath)
	switch {
	case cfgFilePath != "" && cfgEnv != "":
		return nil, errors.New("config file path and config environment variable are both set. specify only one")
	case cfgFilePath == "" && cfgEnv == "":
		return nil, errors.New("config file path and config environment variable are both empty. specify one")
	case cfgFilePath != "":
		logger.Debug().Str("config_file_path", cfgFilePath).Msg("Loading config from file")
		c, err := config.FromFile(cfgFilePath)
		if nil != err {
			return nil, fmt.Errorf("failed to load config file: %v", err)
		}
		return c, nil
	default:
		logger.Debug().Msg("Loading config from environment variable")
		c, err := config.FromString(cfgEnv)
		if nil != err {
			return nil, fmt.Errorf("failed to load config from environment variable: %v", err)
		}
		return c, nil
	}
}

func newLogger(cliCtx *cli.Context) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cliCtx.String(flagLogLevel))
	if nil != err {
		return log.Nop(), fmt.Errorf("invalid log level: %v", err)
	}
	switch format := cliCtx.String(flagLogFormat); format {
	case "pretty":
		return log.NewPretty(os.Stderr).Level(level), nil
	case "json":
		return log.NewPacked(os.Stderr).Level(level), nil
	default:
		return log.Nop(), fmt.Errorf("invalid log format %q", format)
	}
}

func newClient(cfg *config.Config, logger zerolog.Logger, opts ...api.Option) (*api.Client, error) {
	session := auth.New(cfg.Auth, logger.With().Str("module", "auth").Logger())
	user, err := session.Load()
	switch {
	case nil == err:
		opts = append(opts, api.WithUser(user))
	case errors.Is(err, auth.ErrUnauthorized):
		logger.Warn().Str("creds_dir", cfg.Auth.CredsDir).Msg("No stored credentials were found. Sending anonymous requests")
	default:
		return nil, err
	}

	opts = append(opts, api.WithLogger(logger.With().Str("module", "api").Logger()))
	return api.FromConfig(cfg.API, session, opts...)
}

func get(cliCtx *cli.Context) error {
	ctx, cancel := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cliCtx.NArg() == 0 {
		return errors.New("at least one link is required")
	}
	links := make([]tidal.Link, 0, cliCtx.NArg())
	for _, arg := range cliCtx.Args().Slice() {
		link, err := tidal.ParseLink(arg)
		if nil != err {
			return fmt.Errorf("invalid link %q: %v", arg, err)
		}
		links = append(links, *link)
	}

	logger, err := newLogger(cliCtx)
	if nil != err {
		return err
	}
	cfg, err := loadConfig(cliCtx, logger)
	if nil != err {
		return err
	}

	var opts []api.Option
	if !cliCtx.Bool(flagNoCache) && cfg.Cache.MaxSize > 0 {
		objects := cache.New[api.Object](cfg.Cache.MaxSize)
		defer objects.Stop()
		opts = append(opts, api.WithCache(objects, cfg.Cache.TTL))
	}

	client, err := newClient(cfg, logger, opts...)
	if nil != err {
		return err
	}

	results := make([]api.Object, len(links))
	wg, wctx := errgroup.WithContext(ctx)
	wg.SetLimit(ratelimit.LookupConcurrency)
	for i, link := range links {
		wg.Go(func() error {
			logger.Debug().Str("kind", string(link.Kind)).Str("id", link.ID).Msg("Looking up link")
			obj, err := client.Lookup(wctx, link)
			if nil != err {
				return fmt.Errorf("failed to look up %s %s: %w", link.Kind, link.ID, err)
			}
			if link.Kind == tidal.LinkKindTrack || link.Kind == tidal.LinkKindVideo {
				var item struct {
					Artists []tidal.TrackArtist `json:"artists"`
				}
				if err := obj.Decode(&item); nil != err {
					logger.Warn().Err(err).Str("id", link.ID).Msg("Failed to decode artists")
				}
				logger.
					Info().
					Str("kind", string(link.Kind)).
					Str("id", link.ID).
					Str("title", api.CompleteTitleFromPage(obj)).
					Str("artists", tidal.JoinArtists(item.Artists)).
					Msg("Found")
			}
			results[i] = obj
			return nil
		})
	}
	if err := wg.Wait(); nil != err {
		return err
	}

	for _, obj := range results {
		if err := printJSON(cliCtx.App.Writer, obj); nil != err {
			return err
		}
	}
	return nil
}

func printSession(cliCtx *cli.Context) error {
	ctx, cancel := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(cliCtx)
	if nil != err {
		return err
	}
	cfg, err := loadConfig(cliCtx, logger)
	if nil != err {
		return err
	}
	client, err := newClient(cfg, logger)
	if nil != err {
		return err
	}
	if nil == client.User() {
		return auth.ErrUnauthorized
	}

	user, err := client.AwaitStableSession(ctx)
	if nil != err {
		return err
	}
	if nil == user {
		return auth.ErrUnauthorized
	}

	return printJSON(cliCtx.App.Writer, map[string]string{
		"access_token":  log.RedactString(user.AccessToken),
		"refresh_token": log.RedactString(user.RefreshToken),
		"token_type":    user.TokenType,
		"session_id":    user.SessionID,
		"country_code":  user.CountryCode,
		"user_id":       user.UserID,
	})
}

func printJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if nil != err {
		return fmt.Errorf("failed to encode output: %v", err)
	}
	if _, err := w.Write(pretty.Pretty(b)); nil != err {
		return fmt.Errorf("failed to write output: %v", err)
	}
	return nil
}
