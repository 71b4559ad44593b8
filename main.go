package main

import "github.com/andresmejia3/stampscan/cmd"

func main() {
	cmd.Execute()
}
