// Package main provides the gemkeys CLI for managing restricted Gemini API
// keys across every Google Cloud project reachable by a set of accounts.
package main

import "github.com/nholm/gemkeys/cmd/gemkeys/commands"

func main() {
	commands.Execute(Version)
}
