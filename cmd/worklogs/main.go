package main

import "github.com/emmanyouwell/jira-global-summary-app/internal/cli"

func main() { cli.Execute() }
