package pool_test

import (
	"fmt"

	"github.com/idudko/mendel/internal/values"
	"github.com/idudko/mendel/pkg/pool"
)

func ExamplePool() {
	batches := pool.New(func() *values.Batch { return &values.Batch{} })

	b := batches.Get()
	b.Items = append(b.Items, values.MetricData{ID: values.MetricID{ID: "room:temp"}, Value: "21.5"})
	fmt.Println("items:", len(b.Items))

	batches.Put(b)
	fmt.Println("after put:", len(b.Items))

	// Output:
	// items: 1
	// after put: 0
}
