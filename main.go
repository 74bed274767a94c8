package main

import "catalot/lotworker/cmd"

func main() {
	cmd.Execute()
}
