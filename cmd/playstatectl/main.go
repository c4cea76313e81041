package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/playstate/config"
	lr "github.com/unkn0wn-root/playstate/log/logrus"
	"github.com/unkn0wn-root/playstate/userdata"
)

// LogConfig configures handling of application log events.
type LogConfig struct {
	Level  string `long:"level" env:"LEVEL" default:"info" choice:"info" choice:"debug" choice:"warn" description:"Logging level"`
	Format string `long:"format" env:"FORMAT" default:"text" choice:"json" choice:"text" choice:"color" description:"Logging output format"`
}

var Config = new(struct {
	DB  string    `long:"db" env:"PLAYSTATE_DB_PATH" description:"Path of the userdata SQLite file (overrides PLAYSTATE_DB_PATH)"`
	Log LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
})

type keyArgs struct {
	User string `long:"user" required:"true" description:"User id (UUID)"`
	Item string `long:"item" required:"true" description:"Item key"`
}

func (a keyArgs) userID() (uuid.UUID, error) { return uuid.Parse(a.User) }

type cmdGet struct {
	keyArgs
}

func (cmd *cmdGet) Execute([]string) error {
	userID, err := cmd.userID()
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, s userdata.Store) error {
		d, err := s.Get(ctx, userID, cmd.Item)
		if err != nil {
			return err
		}
		return printJSON(d)
	})
}

type cmdSave struct {
	keyArgs
	File string `long:"file" default:"-" description:"JSON record to store. Use - for stdin."`
}

func (cmd *cmdSave) Execute([]string) (err error) {
	userID, err := cmd.userID()
	if err != nil {
		return err
	}
	var fin io.ReadCloser
	if cmd.File == "-" {
		fin = io.NopCloser(os.Stdin)
	} else if fin, err = os.Open(cmd.File); err != nil {
		return err
	}
	defer fin.Close()

	var d userdata.ItemData
	if err = json.NewDecoder(fin).Decode(&d); err != nil {
		return err
	}
	return withStore(func(ctx context.Context, s userdata.Store) error {
		return s.Save(ctx, userID, cmd.Item, &d)
	})
}

type cmdPlayed struct {
	keyArgs
	Unplayed bool `long:"unplayed" description:"Clear the played state instead"`
}

func (cmd *cmdPlayed) Execute([]string) error {
	userID, err := cmd.userID()
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, s userdata.Store) error {
		d, err := userdata.Update(ctx, s, userID, cmd.Item, func(d *userdata.ItemData) {
			if cmd.Unplayed {
				d.MarkUnplayed()
			} else {
				d.MarkPlayed(time.Now())
			}
		})
		if err != nil {
			return err
		}
		return printJSON(d)
	})
}

func withStore(fn func(context.Context, userdata.Store) error) error {
	var ctx = context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if Config.DB != "" {
		cfg.Path = Config.DB
	}
	hooks, closeHooks, err := config.Hooks(cfg, prometheus.DefaultRegisterer, slog.Default())
	if err != nil {
		return err
	}
	defer closeHooks()

	opts, err := config.Options[*userdata.ItemData](ctx, cfg)
	if err != nil {
		return err
	}
	opts.Logger = lr.LogrusLogger{E: log.WithField("db", cfg.Path)}
	opts.Hooks = hooks

	s, err := userdata.New(opts)
	if err != nil {
		return err
	}
	// Shutdown also releases the cache tier when Init fails
	defer s.Shutdown(ctx)
	if err = s.Init(ctx); err != nil {
		return err
	}

	return fn(ctx, s)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func initLog(cfg LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else if cfg.Format == "text" {
		log.SetFormatter(&log.TextFormatter{})
	} else if cfg.Format == "color" {
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	}

	if lvl, err := log.ParseLevel(cfg.Level); err != nil {
		log.WithField("err", err).Fatal("unrecognized log level")
	} else {
		log.SetLevel(lvl)
	}
}

func must(err error, msg string) {
	if err != nil {
		log.WithField("err", err).Fatal(msg)
	}
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		initLog(Config.Log)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, err := parser.AddCommand("get", "Print a record",
		"Print the record stored for a user and item, or the default record", &cmdGet{})
	must(err, "failed to add get command")

	_, err = parser.AddCommand("save", "Store a record",
		"Replace the record for a user and item with a JSON document", &cmdSave{})
	must(err, "failed to add save command")

	_, err = parser.AddCommand("played", "Mark an item played",
		"Mark an item played (or unplayed) for a user", &cmdPlayed{})
	must(err, "failed to add played command")

	if _, err = parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
