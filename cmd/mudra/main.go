// Command mudra records hand landmark takes and exports them as training
// data.
package main

func main() {
	Execute()
}
