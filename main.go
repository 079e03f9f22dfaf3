package main

import "fencing-backend/cmd"

func main() {
	cmd.Execute()
}
