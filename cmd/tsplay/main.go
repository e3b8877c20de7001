// Command tsplay checks and runs TypeScript snippets in a sandbox.
package main

func main() {
	Execute()
}
