package main

import "tripweaver/cmd"

func main() {
	cmd.Execute()
}
