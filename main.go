package main

import (
	"os"

	"gedcom2csv/internal/app"
)

func main() {
	os.Exit(app.Main())
}
