// Command linkaudit runs the broken-link audit orchestration service.
package main

import (
	"github.com/joho/godotenv"

	"github.com/siteproof/linkaudit/cmd"
)

func main() {
	// Local development convenience; absent .env files are fine.
	_ = godotenv.Load()
	cmd.Execute()
}
