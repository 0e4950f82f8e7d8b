package main

import (
	"os"

	"github.com/mike10004/containment-sub001/internal/containment"
)

func main() {
	os.Exit(containment.Main())
}
