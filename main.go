package main

import "github.com/frahmantamala/permit-management/cmd"

func main() {
	cmd.Execute()
}
