package main

import "github.com/Sahilgupta2175/event-calendar/cmd/eventcal/cmd"

func main() {
	cmd.Execute()
}
