package main

import "github.com/ZohaibManzoor00/zo-lms-sub001/cmd"

func main() {
	cmd.Execute()
}
