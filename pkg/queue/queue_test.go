package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/pkg/queue"
)

type echoJob struct {
	Val  string
	seen *sync.Map
}

func (echoJob) JobName() string { return "test.echo" }

func (j *echoJob) Handle(context.Context) error {
	j.seen.Store(j.Val, true)
	return nil
}

type failJob struct {
	attempts *atomic.Int32
}

func (failJob) JobName() string { return "test.fail" }

func (j *failJob) Handle(context.Context) error {
	j.attempts.Add(1)
	return errors.New("always fails")
}

func start(t *testing.T, m *queue.Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 2)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestDispatchAndProcess(t *testing.T) {
	m := queue.New(nil)
	var seen sync.Map
	m.Register("test.echo", func() queue.Job { return &echoJob{seen: &seen} })
	start(t, m)

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, m.Dispatch(context.Background(), &echoJob{Val: v}))
	}

	assert.Eventually(t, func() bool {
		_, a := seen.Load("a")
		_, b := seen.Load("b")
		_, c := seen.Load("c")
		return a && b && c
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFailedJobIsRetriedThenPersisted(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&queue.FailedJobRecord{}))

	m := queue.New(nil)
	m.SetMaxRetry(2)
	m.SetBackoff(func(int) time.Duration { return time.Millisecond })
	m.UseDB(db)

	var attempts atomic.Int32
	m.Register("test.fail", func() queue.Job { return &failJob{attempts: &attempts} })
	start(t, m)

	require.NoError(t, m.Dispatch(context.Background(), &failJob{}))

	assert.Eventually(t, func() bool { return len(m.FailedJobs()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), attempts.Load())

	var rows []queue.FailedJobRecord
	require.Eventually(t, func() bool {
		return db.Find(&rows).Error == nil && len(rows) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "test.fail", rows[0].JobType)
	assert.Equal(t, "always fails", rows[0].Error)
	assert.Equal(t, 2, rows[0].Attempts)
}

func TestDispatchAfterWithMemoryDriver(t *testing.T) {
	m := queue.New(nil)
	var seen sync.Map
	m.Register("test.echo", func() queue.Job { return &echoJob{seen: &seen} })
	start(t, m)

	require.NoError(t, m.DispatchAfter(context.Background(), &echoJob{Val: "late"}, 20*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, ok := seen.Load("late")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryDriverFull(t *testing.T) {
	d := queue.NewMemoryDriver()
	for i := 0; i < 1000; i++ {
		require.NoError(t, d.Push(context.Background(), []byte("{}")))
	}
	assert.Error(t, d.Push(context.Background(), []byte("{}")))
	assert.Equal(t, 1000, d.Len())
}
