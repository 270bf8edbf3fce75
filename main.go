package main

import "github.com/nextlevelbuilder/goreact/cmd"

func main() {
	cmd.Execute()
}
