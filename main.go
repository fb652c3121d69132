package main

import (
	"fmt"

	"github.com/healis/realtime-service/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
