// The main package for the harvester executable.
package main

import "github.com/JakeFAU/bgg-catalog-harvester/cmd"

func main() {
	cmd.Execute()
}
