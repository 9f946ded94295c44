package main

import (
	"log"

	"github.com/markitapp/markit/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ markit failed to start: %v", err)
	}
}
