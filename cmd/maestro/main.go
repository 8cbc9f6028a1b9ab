// Command maestro runs multi-agent workflows defined as dependency graphs.
package main

func main() {
	Execute()
}
