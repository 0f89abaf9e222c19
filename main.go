package main

import "threadedhttp/cmd"

func main() {
	cmd.Execute()
}
