package main

import "github.com/forzalog/lap-engine-go/cmd"

func main() {
	cmd.Execute()
}
