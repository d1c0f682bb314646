package main

import "github.com/mhan0505/student-management-system/cmd"

func main() {
	cmd.Execute()
}
