package main

import (
	"log"
	"os"

	"github.com/mohammad-safakhou/govqa/config"
	"github.com/mohammad-safakhou/govqa/internal/server"
)

func main() {
	cfg := config.LoadConfig(os.Getenv("GOVQA_CONFIG"))

	if err := server.Run(cfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
