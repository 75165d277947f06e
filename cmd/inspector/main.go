// cmd/inspector/main.go
package main

func main() {
	Execute()
}
