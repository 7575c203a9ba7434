package main

import "github.com/StinkyLord/sbom-enricher/cmd"

func main() {
	cmd.Execute()
}
