package looper_test

import (
	"fmt"
	"log"
	"time"

	looper "github.com/joeycumines/go-looper"
)

func Example() {
	loop, err := looper.New(looper.WithName("example"))
	if err != nil {
		log.Fatal(err)
	}

	var ticks int
	loop.Schedule(func() (bool, error) {
		ticks++
		fmt.Println("tick", ticks)
		if ticks == 3 {
			loop.Quit()
			return false, nil
		}
		return true, nil
	}, 0, 10*time.Millisecond, false)

	if err := loop.Run(); err != nil {
		log.Fatal(err)
	}

	// Output:
	// tick 1
	// tick 2
	// tick 3
}
