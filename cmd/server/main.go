package main

import "burnchat-backend/internal/app"

func main() {
	app.Run()
}
