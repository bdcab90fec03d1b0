package main

import "framez-backend/cmd"

func main() {
	cmd.Run()
}
