package orchestrator_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepfree/access-planner/internal/config"
	"github.com/stepfree/access-planner/internal/orchestrator"
	"github.com/stepfree/access-planner/internal/store"
	"github.com/stepfree/access-planner/internal/store/model"
)

var _ = Describe("reaper", Ordered, func() {
	var s store.Store

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	createStale := func(subject string) *model.Evaluation {
		e, err := s.Evaluation().Create(context.TODO(), model.Evaluation{
			Subject:   subject,
			UserNeeds: "cane",
			CreatedAt: time.Now().Add(-3 * time.Hour),
			UpdatedAt: time.Now().Add(-3 * time.Hour),
		})
		Expect(err).To(BeNil())
		return e
	}

	It("fails stale evaluations which are not running", func() {
		registry := orchestrator.NewRegistry()
		orphan := createStale("orphan")
		live := createStale("live")

		release := make(chan struct{})
		defer close(release)
		Expect(registry.Go(live.ID, func() { <-release })).To(Succeed())

		reaper := orchestrator.NewReaper(s, registry, time.Hour, time.Minute)
		reaped, err := reaper.Reap(context.TODO())
		Expect(err).To(BeNil())
		Expect(reaped).To(BeNumerically(">=", 1))

		got, err := s.Evaluation().Get(context.TODO(), orphan.ID)
		Expect(err).To(BeNil())
		Expect(got.Status).To(Equal(model.EvaluationStatusError))
		Expect(*got.FinalSummary).To(Equal(orchestrator.TimedOutSummary))

		got, err = s.Evaluation().Get(context.TODO(), live.ID)
		Expect(err).To(BeNil())
		Expect(got.Status).To(Equal(model.EvaluationStatusProcessing))
	})

	It("leaves recent evaluations alone", func() {
		fresh, err := s.Evaluation().Create(context.TODO(), model.Evaluation{Subject: "fresh", UserNeeds: "cane"})
		Expect(err).To(BeNil())

		reaper := orchestrator.NewReaper(s, orchestrator.NewRegistry(), time.Hour, time.Minute)
		_, err = reaper.Reap(context.TODO())
		Expect(err).To(BeNil())

		got, err := s.Evaluation().Get(context.TODO(), fresh.ID)
		Expect(err).To(BeNil())
		Expect(got.Status).To(Equal(model.EvaluationStatusProcessing))
	})

	It("stops with its context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			orchestrator.NewReaper(s, orchestrator.NewRegistry(), time.Hour, time.Hour).Run(ctx)
			close(done)
		}()
		cancel()
		Eventually(done).Should(BeClosed())
	})
})
