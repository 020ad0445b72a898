package main

import "github.com/israelwong/zen-sub001/cmd/ordctl/cmd"

func main() {
	cmd.Execute()
}
