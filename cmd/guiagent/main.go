package main

import (
	"gui-agent/internal/bootstrap"
)

func main() {
	bootstrap.NewApp().Run()
}
