package batch

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jsphweid/midigen/file"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func jobs(n int) []file.Job {
	var res []file.Job
	for i := 0; i < n; i++ {
		res = append(res, file.Job{Num: uint32(i), Input: "in" + strconv.Itoa(i)})
	}
	return res
}

var errBad = errors.New("bad file")

func TestRunKeepsOrderAndIsolatesFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	results := Run(context.Background(), zap.New(core), jobs(20), 4, func(_ context.Context, j file.Job) (int, error) {
		if j.Num%5 == 0 {
			return 0, errBad
		}
		return int(j.Num) * 2, nil
	})

	assert := assert.New(t)
	assert.Len(results, 20)
	for i, r := range results {
		assert.Equal(uint32(i), r.Job.Num)
		if i%5 == 0 {
			assert.True(errors.Is(r.Err, errBad))
		} else {
			assert.NoError(r.Err)
			assert.Equal(i*2, r.Value)
		}
	}
	assert.Len(Failed(results), 4)
	assert.Equal(4, logs.FilterMessage("Skipping").Len())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := Run(ctx, zap.NewNop(), jobs(10), 2, func(_ context.Context, j file.Job) (int, error) {
		return 1, nil
	})

	assert := assert.New(t)
	assert.Len(results, 10)
	failed := Failed(results)
	assert.Len(failed, 10)
	for _, r := range failed {
		assert.True(errors.Is(r.Err, context.Canceled))
	}
}

func TestRunNoJobs(t *testing.T) {
	results := Run(context.Background(), zap.NewNop(), nil, 0, func(_ context.Context, j file.Job) (int, error) {
		return 0, nil
	})
	assert.Empty(t, results)
}

func TestNoProgressAfterFinish(t *testing.T) {
	old := progressInterval
	progressInterval = 5 * time.Millisecond
	t.Cleanup(func() { progressInterval = old })

	core, logs := observer.New(zapcore.InfoLevel)
	Run(context.Background(), zap.New(core), jobs(50), 4, func(_ context.Context, j file.Job) (int, error) {
		if j.Num%10 == 0 {
			time.Sleep(10 * time.Millisecond)
		}
		return 0, nil
	})
	time.Sleep(50 * time.Millisecond)

	entries := logs.All()
	assert := assert.New(t)
	assert.NotEmpty(entries)
	last := entries[len(entries)-1]
	assert.Equal("Finished", last.Message)
	assert.EqualValues(50, last.ContextMap()["done"])
	assert.Equal(1, logs.FilterMessage("Finished").Len())
}
