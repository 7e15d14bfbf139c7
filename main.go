package main

import "event-gallery-backend/cmd"

func main() {
	cmd.Run()
}
