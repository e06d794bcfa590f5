package main

import "github.com/jlh-tonga/meds/cmd"

func main() {
	cmd.Execute()
}
