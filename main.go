package main

import "github.com/Mohsinsiddi/w3wizard/cmd"

func main() {
	cmd.Execute()
}
