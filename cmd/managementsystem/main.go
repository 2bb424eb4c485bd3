package main

import (
	"log"
	"os"

	"github.com/BehruzbekUmarov/ManagementSystem/app"
)

func main() {
	application, err := app.NewApp().WithAutoConfig().Build()
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	os.Exit(application.Run())
}
