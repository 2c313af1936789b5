package executor_test

import (
	"context"
	"fmt"
	"time"

	"github.com/evan-idocoding/mexec/rt/executor"
	"github.com/evan-idocoding/mexec/rt/managed"
	"github.com/evan-idocoding/mexec/rt/trigger"
)

func ExampleSubmit() {
	e := executor.New(executor.WithPool(executor.NewWorkerPool(executor.WithWorkers(2))))
	defer e.Shutdown(context.Background())

	f, err := executor.Submit(e, managed.CallableFunc[int](func(context.Context) (int, error) {
		return 6 * 7, nil
	}))
	if err != nil {
		fmt.Println(err)
		return
	}
	n, err := executor.Result[int](context.Background(), f)
	fmt.Println(n, err)

	// Output:
	// 42 <nil>
}

func ExampleExecutor_Schedule() {
	e := executor.New(executor.WithPool(executor.NewWorkerPool(executor.WithWorkers(2))))
	defer e.Shutdown(context.Background())

	var runs int
	w, _ := managed.WrapRunnable(managed.RunnableFunc(func(context.Context) error {
		runs++
		return nil
	}), managed.WithProperties(managed.Properties{managed.IdentityName: "heartbeat"}))

	s, err := e.Schedule(w, trigger.Limit(trigger.Every(time.Millisecond, trigger.WithStartImmediately(true)), 3))
	if err != nil {
		fmt.Println(err)
		return
	}
	err = s.Wait(context.Background())
	fmt.Println(s.Name(), runs, err, s.Last().Outcome)

	// Output:
	// heartbeat 3 <nil> succeeded
}
