package orchestrator_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepfree/access-planner/internal/orchestrator"
)

var _ = Describe("registry", func() {
	It("runs a single goroutine per id", func() {
		r := orchestrator.NewRegistry()
		id := uuid.New()
		release := make(chan struct{})

		Expect(r.Go(id, func() { <-release })).To(Succeed())
		Expect(r.Go(id, func() {})).To(MatchError(orchestrator.ErrAlreadyRunning))
		Expect(r.Running(id)).To(BeTrue())
		Expect(r.Len()).To(Equal(1))

		close(release)
		Eventually(r.Done(id)).Should(BeClosed())
		Expect(r.Running(id)).To(BeFalse())

		ran := make(chan struct{})
		Expect(r.Go(id, func() { close(ran) })).To(Succeed())
		Eventually(ran).Should(BeClosed())
	})

	It("reports unknown ids as done", func() {
		r := orchestrator.NewRegistry()
		Expect(r.Done(uuid.New())).To(BeClosed())
		Expect(r.Wait(context.TODO(), uuid.New())).To(Succeed())
	})

	It("stops waiting when the context is done", func() {
		r := orchestrator.NewRegistry()
		id := uuid.New()
		release := make(chan struct{})
		defer close(release)
		Expect(r.Go(id, func() { <-release })).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(r.Wait(ctx, id)).To(MatchError(context.DeadlineExceeded))
	})

	It("drains the live runs on shutdown and refuses new ones", func() {
		r := orchestrator.NewRegistry()
		release := make(chan struct{})
		Expect(r.Go(uuid.New(), func() { <-release })).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(r.Shutdown(ctx)).To(MatchError(context.DeadlineExceeded))
		Expect(r.Go(uuid.New(), func() {})).To(MatchError(orchestrator.ErrShuttingDown))

		close(release)
		Expect(r.Shutdown(context.Background())).To(Succeed())
		Expect(r.Len()).To(BeZero())
	})
})
