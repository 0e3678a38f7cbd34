package main

import "github.com/jsphweid/midigen/cmd"

func main() {
	cmd.Execute()
}
