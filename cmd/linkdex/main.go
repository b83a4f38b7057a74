package main

import (
	"log"

	"github.com/MrSnakeDoc/linkdex/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ linkdex failed: %v", err)
	}
}
