package main

import (
	"log"

	"helmetwatch/internal/app"
	"helmetwatch/internal/config"
	"helmetwatch/internal/ui"
)

func main() {
	application, err := app.New(config.Load())
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	ui.CreateApp(
		application.Cameras(),
		application.Monitor(),
		application.Screenshots(),
		application.Logger(),
	).Run()
}
