package main

import (
	"log"

	"github.com/israelwong/zen-sub001/cmd/serverrun"
)

func main() {
	if err := serverrun.Run(); err != nil {
		log.Fatal(err)
	}
}
