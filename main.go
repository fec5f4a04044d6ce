package main

import "github.com/klytics/chojson/cmd"

func main() {
	cmd.Execute()
}
