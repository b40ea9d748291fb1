package main

import "github.com/nextlevelbuilder/mogzi/cmd"

func main() {
	cmd.Execute()
}
