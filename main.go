package main

import (
	"os"

	"github.com/bnoidc/oidcfiber/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
