package safego_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/evan-idocoding/mexec/rt/safego"
)

func ExampleGoErr_withWaitGroup() {
	var wg sync.WaitGroup
	wg.Add(1)

	safego.GoErr(context.Background(), func(context.Context) error {
		return nil
	}, safego.WithName("cache-refresh"),
		safego.WithFinally(wg.Done),
	)

	wg.Wait()
	// Output:
}

func ExampleCall() {
	err := safego.Call(context.Background(), func(context.Context) error {
		panic("boom")
	}, safego.WithPanicPolicy(safego.RecoverOnly))

	var pe *safego.PanicError
	fmt.Println(errors.As(err, &pe), pe.Value)

	// Output:
	// true boom
}
