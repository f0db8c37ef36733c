package main

import "github.com/ZanzyTHEbar/pkgowners/cmd/pkgowners/cmd"

func main() {
	cmd.Execute()
}
