// Command shape validates and renders data against serializer schemas declared in YAML.
//
//	shape validate --schemas music.yaml Album album.json
//	shape render   --schemas music.yaml Album stored.json
//	shape schema   --schemas music.yaml Album
//	shape list     --schemas music.yaml
//
// A .env file in the working directory is loaded first. SHAPE_SCHEMAS and SHAPE_SETTINGS
// supply flag defaults; other SHAPE_* variables override settings (see applyEnv).
// LOG_LEVEL selects the log level.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	configureLogging(os.Getenv("LOG_LEVEL"), os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = log.Logger.WithContext(ctx)

	err := newRootCmd().ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errInvalid):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "shape:", err)
		os.Exit(2)
	}
}
