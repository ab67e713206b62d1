package main

import "medcare/internal/app"

func main() {
	app.Main()
}
