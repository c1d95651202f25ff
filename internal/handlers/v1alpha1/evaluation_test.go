package v1alpha1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepfree/access-planner/api/v1alpha1"
	"github.com/stepfree/access-planner/internal/config"
	handlers "github.com/stepfree/access-planner/internal/handlers/v1alpha1"
	"github.com/stepfree/access-planner/internal/service"
	"github.com/stepfree/access-planner/internal/store"
	"github.com/stepfree/access-planner/internal/store/model"
	"github.com/stepfree/access-planner/internal/util"
	"github.com/stepfree/access-planner/pkg/middleware"
	"github.com/stepfree/access-planner/pkg/requestid"
)

// storeSubmitter creates the record and never runs a pipeline, so the
// record stays in processing.
type storeSubmitter struct {
	store    store.Store
	subjects []string
}

func (s *storeSubmitter) Submit(ctx context.Context, subject, userNeeds string) (uuid.UUID, error) {
	s.subjects = append(s.subjects, subject)
	e, err := s.store.Evaluation().Create(ctx, model.Evaluation{Subject: subject, UserNeeds: userNeeds})
	if err != nil {
		return uuid.Nil, err
	}
	return e.ID, nil
}

var _ = Describe("evaluation handler", Ordered, func() {
	var (
		s         store.Store
		submitter *storeSubmitter
		router    chi.Router
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		submitter = &storeSubmitter{store: s}
		router = chi.NewRouter()
		router.Use(middleware.RequestID)
		handlers.NewServiceHandler(service.NewEvaluationService(s, submitter)).Routes(router)
	})

	do := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	Context("create evaluation", func() {
		It("returns the job id", func() {
			rec := do(http.MethodPost, "/api/v1/evaluations", `{"address":"123 Example St","userNeeds":"wheelchair user, needs step-free entry"}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var created v1alpha1.EvaluationCreated
			Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
			Expect(created.JobId).ToNot(Equal(uuid.Nil))
			Expect(submitter.subjects).To(Equal([]string{"123 Example St"}))

			e, err := s.Evaluation().Get(context.TODO(), created.JobId)
			Expect(err).To(BeNil())
			Expect(e.Status).To(Equal(model.EvaluationStatusProcessing))
		})

		It("uses the url when both are given", func() {
			rec := do(http.MethodPost, "/api/v1/evaluations", `{"address":"123 Example St","url":"https://homes.example.com/l/9","userNeeds":"blind"}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(submitter.subjects).To(Equal([]string{"https://homes.example.com/l/9"}))
		})

		It("rejects a body without address nor url", func() {
			rec := do(http.MethodPost, "/api/v1/evaluations", `{"userNeeds":"blind"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var apiErr v1alpha1.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &apiErr)).To(Succeed())
			Expect(apiErr.Message).To(ContainSubstring("an address or a listing url is required"))
			Expect(apiErr.RequestId).ToNot(BeNil())
			Expect(*apiErr.RequestId).To(Equal(rec.Header().Get(requestid.RequestIDHeader)))
			Expect(submitter.subjects).To(BeEmpty())
		})

		It("rejects missing user needs", func() {
			rec := do(http.MethodPost, "/api/v1/evaluations", `{"address":"123 Example St"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("userNeeds is required"))
		})

		It("rejects a malformed body", func() {
			rec := do(http.MethodPost, "/api/v1/evaluations", `{"address":`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(submitter.subjects).To(BeEmpty())
		})

		It("rejects a non http url", func() {
			rec := do(http.MethodPost, "/api/v1/evaluations", `{"url":"file:///etc/passwd","userNeeds":"blind"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("get evaluation", func() {
		It("renders a processing record without results", func() {
			e, err := s.Evaluation().Create(context.TODO(), model.Evaluation{Subject: "1 Main St", UserNeeds: "deaf"})
			Expect(err).To(BeNil())

			rec := do(http.MethodGet, "/api/v1/evaluations/"+e.ID.String(), "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["status"]).To(Equal("processing"))
			Expect(body).ToNot(HaveKey("imageResults"))
			Expect(body).ToNot(HaveKey("specialtyResults"))
			Expect(body).To(HaveKeyWithValue("finalScore", BeNil()))
		})

		It("renders a completed record", func() {
			e, err := s.Evaluation().Create(context.TODO(), model.Evaluation{Subject: "2 Main St", UserNeeds: "wheelchair"})
			Expect(err).To(BeNil())
			Expect(s.Evaluation().AppendImageResults(context.TODO(), e.ID, []model.ImageResult{
				{ImageURL: "https://img.example.com/1.jpg"},
				{ImageURL: "https://img.example.com/2.jpg", Triggers: []string{"narrow doorway"}, Locator: &[2]float64{0.4, 0.6}},
			})).To(Succeed())
			_, err = s.Evaluation().Update(context.TODO(), e.ID, model.EvaluationUpdate{
				Status:           util.Ptr(model.EvaluationStatusCompleted),
				SpecialtyResults: []model.SpecialtyResult{{Category: "Pollution", Findings: "quiet street"}},
				FinalScore:       util.Ptr(72),
				FinalSummary:     util.Ptr("mostly accessible"),
			})
			Expect(err).To(BeNil())

			rec := do(http.MethodGet, "/api/v1/evaluations/"+e.ID.String(), "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var got v1alpha1.Evaluation
			Expect(json.Unmarshal(rec.Body.Bytes(), &got)).To(Succeed())
			Expect(got.Status).To(Equal(v1alpha1.EvaluationStatusCompleted))
			Expect(*got.FinalScore).To(Equal(72))
			Expect(*got.FinalSummary).To(Equal("mostly accessible"))
			Expect(*got.ImageResults).To(HaveLen(2))
			Expect((*got.ImageResults)[0].Triggers).To(BeNil())
			Expect(*(*got.ImageResults)[1].Triggers).To(Equal([]string{"narrow doorway"}))
			Expect(*got.SpecialtyResults).To(Equal([]v1alpha1.SpecialtyResult{{Category: "Pollution", Findings: "quiet street"}}))
		})

		It("returns 404 for an unknown id", func() {
			rec := do(http.MethodGet, "/api/v1/evaluations/"+uuid.NewString(), "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed id", func() {
			rec := do(http.MethodGet, "/api/v1/evaluations/not-a-uuid", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("answers health checks", func() {
		rec := do(http.MethodGet, "/health", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
