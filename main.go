package main

import "github.com/caedis/fezmod-installer/cmd"

func main() {
	cmd.Execute()
}
