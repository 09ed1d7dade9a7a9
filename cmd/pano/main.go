package main

import "github.com/kiesman99/pano/cmd"

func main() {
	cmd.Execute()
}
