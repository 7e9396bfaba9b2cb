package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/wikimedia-contest/jury/internal/adapters/mq/queue"
	worker "github.com/wikimedia-contest/jury/internal/adapters/mq/worker"
	model "github.com/wikimedia-contest/jury/internal/domain/model"
	screening "github.com/wikimedia-contest/jury/internal/domain/screening"
	logging "github.com/wikimedia-contest/jury/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	checkChan chan queue.Check
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		checkChan: make(chan queue.Check, 10),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Check {
	return mq.checkChan
}

func (mq *mockQueue) Close() error {
	close(mq.checkChan)
	return nil
}

func (mq *mockQueue) addCheck(check queue.Check) {
	mq.checkChan <- check
}

type mockRecorder struct {
	flags  map[string][]string
	errors map[string]error
	mu     sync.RWMutex
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{
		flags:  make(map[string][]string),
		errors: make(map[string]error),
	}
}

func (mr *mockRecorder) RecordSystemScreening(ctx context.Context, submissionID string, flags []string) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	if err, exists := mr.errors[submissionID]; exists {
		return err
	}
	mr.flags[submissionID] = flags
	return nil
}

func (mr *mockRecorder) setError(submissionID string, err error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.errors[submissionID] = err
}

func (mr *mockRecorder) getFlags(submissionID string) ([]string, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	flags, exists := mr.flags[submissionID]
	return flags, exists
}

func testLimits() screening.AudioLimits {
	return screening.AudioLimits{
		MinDurationMS:  1000,
		MaxDurationMS:  4000,
		MinSampleRate:  44100,
		MaxChannels:    2,
		MaxSizeBytes:   100 << 20,
		AllowedFormats: []string{"ogg", "wav", "mp3"},
	}
}

func goodAudio() model.AudioMeta {
	return model.AudioMeta{
		Format:     "ogg",
		DurationMS: 3200,
		SampleRate: 48000,
		Channels:   2,
		SizeBytes:  2 << 20,
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		mq := newMockQueue()
		recorder := newMockRecorder()

		convey.Convey("When creating a worker with default options", func() {
			w := worker.NewInMemoryWorker(mq, recorder, testLimits())

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(mq, recorder, testLimits(), worker.WithName("test-worker"))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go w.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			convey.Convey("And when the audio is inside bounds", func() {
				mq.addCheck(queue.Check{SubmissionID: "sub-1", Audio: goodAudio()})
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then no record is produced", func() {
					_, exists := recorder.getFlags("sub-1")
					convey.So(exists, convey.ShouldBeFalse)
				})
			})

			convey.Convey("And when the audio violates bounds", func() {
				bad := goodAudio()
				bad.DurationMS = 9000
				bad.SampleRate = 8000
				mq.addCheck(queue.Check{SubmissionID: "sub-2", Audio: bad})
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then a system record carries the flags", func() {
					flags, exists := recorder.getFlags("sub-2")
					convey.So(exists, convey.ShouldBeTrue)
					convey.So(flags, convey.ShouldResemble, []string{
						screening.FlagDurationOutOfRange,
						screening.FlagSampleRateTooLow,
					})
				})
			})

			convey.Convey("And when recording fails", func() {
				recorder.setError("sub-3", errors.New("journal down"))
				bad := goodAudio()
				bad.Format = "flac"
				mq.addCheck(queue.Check{SubmissionID: "sub-3", Audio: bad})

				// Worker keeps processing after the failure.
				bad2 := goodAudio()
				bad2.Channels = 6
				mq.addCheck(queue.Check{SubmissionID: "sub-4", Audio: bad2})
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the failed check is skipped and later ones land", func() {
					_, exists := recorder.getFlags("sub-3")
					convey.So(exists, convey.ShouldBeFalse)
					flags, exists := recorder.getFlags("sub-4")
					convey.So(exists, convey.ShouldBeTrue)
					convey.So(flags, convey.ShouldResemble, []string{screening.FlagChannelsUnsupported})
				})
			})

			convey.Convey("And when shutting down", func() {
				err := w.Shutdown(context.Background())

				convey.Convey("Then it stops cleanly", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		mq := newMockQueue()
		recorder := newMockRecorder()
		pool := worker.NewPool(3, mq, recorder, testLimits())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		time.Sleep(10 * time.Millisecond)

		convey.Convey("When checks flow through", func() {
			bad := goodAudio()
			bad.SizeBytes = 500 << 20
			mq.addCheck(queue.Check{SubmissionID: "sub-1", Audio: bad})
			mq.addCheck(queue.Check{SubmissionID: "sub-2", Audio: goodAudio()})
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then only the violating one is recorded", func() {
				flags, exists := recorder.getFlags("sub-1")
				convey.So(exists, convey.ShouldBeTrue)
				convey.So(flags, convey.ShouldResemble, []string{screening.FlagFileTooLarge})
				_, exists = recorder.getFlags("sub-2")
				convey.So(exists, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shutting the pool down", func() {
			err := pool.Shutdown(ctx)

			convey.Convey("Then it closes the queue and stops", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}
