package main

import "workspace-sync/cmd"

func main() {
	cmd.Execute()
}
