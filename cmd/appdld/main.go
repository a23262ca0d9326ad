// Command appdld runs the appdl daemon in the foreground for service
// managers. It accepts a single optional flag, -config.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"appdl/internal/config"
	"appdl/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("appdld: %v", err)
	}
}
