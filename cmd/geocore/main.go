package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/geocore/internal"
	"github.com/starford/geocore/internal/storage"
	"github.com/starford/geocore/internal/uploader"
	pkgconfig "github.com/starford/geocore/pkg/config"
	"github.com/starford/geocore/pkg/geocore"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runMode(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithMode(mode)); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

// session builds a client and logs in as the device's default user.
func session(ctx context.Context, cmd *cli.Command) (*geocore.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return sessionFor(ctx, cfg)
}

func sessionFor(ctx context.Context, cfg *internal.Config) (*geocore.Client, error) {
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	client, err := internal.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	if _, err := client.LoginWithDefaultUser(ctx); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return client, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func login(ctx context.Context, cmd *cli.Command) error {
	client, err := session(ctx, cmd)
	if err != nil {
		return err
	}
	fmt.Printf("user_id: %s\ntoken: %s\n", client.UserID(), client.Token())
	return nil
}

func place(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: geocore place <id>")
	}
	client, err := session(ctx, cmd)
	if err != nil {
		return err
	}
	p, err := client.Places.Get(ctx, geocore.PlaceQuery{ObjectQuery: geocore.ObjectQuery{ID: id}})
	if err != nil {
		return err
	}
	return printJSON(p.ToMap())
}

func nearest(ctx context.Context, cmd *cli.Command) error {
	client, err := session(ctx, cmd)
	if err != nil {
		return err
	}
	q := geocore.PlaceQuery{
		ObjectQuery: geocore.ObjectQuery{PerPage: int(cmd.Int("limit"))},
		Center:      &geocore.Point{Latitude: cmd.Float("lat"), Longitude: cmd.Float("lon")},
	}

	var places []*geocore.Place
	if cmd.IsSet("radius") {
		q.Radius = geocore.Float64(cmd.Float("radius"))
		places, err = client.Places.WithinCircle(ctx, q)
	} else {
		places, err = client.Places.Nearest(ctx, q)
	}
	if err != nil {
		return err
	}

	out := make([]map[string]any, 0, len(places))
	for _, p := range places {
		out = append(out, p.ToMap())
	}
	return printJSON(out)
}

func download(ctx context.Context, cmd *cli.Command) error {
	objectID, key := cmd.Args().Get(0), cmd.Args().Get(1)
	if objectID == "" || key == "" {
		return fmt.Errorf("usage: geocore download <object-id> <key>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := sessionFor(ctx, cfg)
	if err != nil {
		return err
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = cfg.Uploader.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	out := cmd.String("out")
	if out == "" {
		out = key
	}
	written, err := uploader.Fetch(ctx, client.Binaries, store, objectID, key, out)
	if err != nil {
		return err
	}
	if !written {
		fmt.Printf("%s: unchanged\n", out)
		return nil
	}
	fmt.Printf("%s: written\n", out)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "geocore",
		Usage: "Geocore client: queries, MCP tools and a binary upload watcher",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Upload new and changed files in uploader.dir as binaries of uploader.object_id",
				Action: runMode(internal.ModeWatch),
			},
			{
				Name:   "mcp",
				Usage:  "Serve Geocore tools over MCP on stdio",
				Action: runMode(internal.ModeMCP),
			},
			{
				Name:   "login",
				Usage:  "Log in as the device's default user, registering it when needed",
				Action: login,
			},
			{
				Name:      "place",
				Usage:     "Print one place",
				ArgsUsage: "<id>",
				Action:    place,
			},
			{
				Name:      "download",
				Usage:     "Save a binary of an object under --dir, skipping the write when the content is unchanged",
				ArgsUsage: "<object-id> <key>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "Target directory (default uploader.dir)"},
					&cli.StringFlag{Name: "out", Usage: "File name under --dir (default the key)"},
				},
				Action: download,
			},
			{
				Name:  "nearest",
				Usage: "Print the places nearest to a coordinate, or within --radius km of it",
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "lat", Usage: "Latitude in degrees", Required: true},
					&cli.FloatFlag{Name: "lon", Usage: "Longitude in degrees", Required: true},
					&cli.FloatFlag{Name: "radius", Usage: "Radius in kilometres"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of places", Value: 10},
				},
				Action: nearest,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
