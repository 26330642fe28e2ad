package main

import "github.com/ardanlabs/blockminer/app/tooling/txtool/cmd"

func main() {
	cmd.Execute()
}
