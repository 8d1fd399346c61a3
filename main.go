package main

import "github.com/seijimatsuda/session-planner-beta/cli/cmd"

func main() {
	cmd.Execute()
}
