package main

import "github.com/Davincible/ecoswitch-go/cmd"

func main() {
	cmd.Execute()
}
