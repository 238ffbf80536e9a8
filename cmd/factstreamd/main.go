// Command factstreamd runs the factstream daemon: it loads configuration,
// opens the embedding cache, and serves the pipeline API until terminated.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"factstream/internal/config"
	"factstream/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "override configured log level")
	flag.Parse()

	// A .env next to the working directory may carry OPENAI_API_KEY.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("factstreamd: %v", err)
	}
}
