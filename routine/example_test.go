package routine_test

import (
	"fmt"
	"time"

	"github.com/saltfishpr/futures/routine"
)

func ExampleRunSafe() {
	routine.RunSafe(func() {
		fmt.Println("working...")
		panic("boom")
	})

	fmt.Println("still alive")

	// Output:
	// working...
	// still alive
}

func ExampleRunSafe_withCleanup() {
	routine.RunSafe(func() {
		panic("boom")
	}, func(r interface{}) {
		fmt.Printf("cleaning up after: %v\n", r)
	})

	// Output:
	// cleaning up after: boom
}

func ExampleGoSafe() {
	done := make(chan struct{})

	routine.GoSafe(func() {
		fmt.Println("task running")
		panic("task failed")
	}, func(r interface{}) {
		close(done)
	})

	<-done
	fmt.Println("main keeps going")

	// Output:
	// task running
	// main keeps going
}

func ExampleRunWithTimeout() {
	finished := routine.RunWithTimeout(func() {
		time.Sleep(10 * time.Millisecond)
	}, time.Second)

	fmt.Printf("finished: %v\n", finished)

	// Output:
	// finished: true
}

func ExampleNewRecovered() {
	defer func() {
		if r := recover(); r != nil {
			err := routine.NewRecovered(1, r).AsError()
			fmt.Println(err != nil)
		}
	}()

	panic("manual panic")

	// Output:
	// true
}
