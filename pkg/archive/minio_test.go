package archive_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepfree/access-planner/internal/store/model"
	"github.com/stepfree/access-planner/internal/util"
	"github.com/stepfree/access-planner/pkg/archive"
)

var _ = Describe("minio archiver", func() {
	var (
		mu       sync.Mutex
		uploads  map[string]http.Header
		server   *httptest.Server
		archiver *archive.MinioArchiver
	)

	BeforeEach(func() {
		uploads = map[string]http.Header{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				w.WriteHeader(http.StatusOK)
				return
			}
			_, _ = io.Copy(io.Discard, r.Body)
			mu.Lock()
			uploads[r.URL.Path] = r.Header.Clone()
			mu.Unlock()
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		}))

		var err error
		archiver, err = archive.NewMinioArchiver(
			archive.WithEndpoint(strings.TrimPrefix(server.URL, "http://")),
			archive.WithBucket("reports"),
			archive.WithRegion("us-east-1"),
			archive.WithAccessKey("access"),
			archive.WithSecretKey("secret"),
		)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		server.Close()
	})

	It("uploads the record as json under the evaluations prefix", func() {
		e := model.Evaluation{
			ID:           uuid.New(),
			Subject:      "1 Main St",
			UserNeeds:    "cane",
			Status:       model.EvaluationStatusCompleted,
			FinalScore:   util.Ptr(80),
			FinalSummary: util.Ptr("fine"),
		}

		Expect(archiver.ObjectName(e)).To(Equal("evaluations/" + e.ID.String() + ".json"))
		Expect(archiver.Archive(context.TODO(), e)).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		header, found := uploads["/reports/evaluations/"+e.ID.String()+".json"]
		Expect(found).To(BeTrue())
		Expect(header.Get("Content-Type")).To(Equal("application/json"))
		Expect(header.Get("X-Amz-Meta-Status")).To(Equal("completed"))
	})

	It("uploads under a configured prefix", func() {
		prefixed, err := archive.NewMinioArchiver(
			archive.WithEndpoint(strings.TrimPrefix(server.URL, "http://")),
			archive.WithBucket("reports"),
			archive.WithPrefix("staging/evaluations"),
			archive.WithRegion("eu-west-1"),
			archive.WithAccessKey("access"),
			archive.WithSecretKey("secret"),
		)
		Expect(err).To(BeNil())

		e := model.Evaluation{ID: uuid.New(), Subject: "2 Main St", UserNeeds: "deaf", Status: model.EvaluationStatusError}
		Expect(prefixed.ObjectName(e)).To(Equal("staging/evaluations/" + e.ID.String() + ".json"))
		Expect(prefixed.Archive(context.TODO(), e)).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		header, found := uploads["/reports/staging/evaluations/"+e.ID.String()+".json"]
		Expect(found).To(BeTrue())
		Expect(header.Get("X-Amz-Meta-Status")).To(Equal("error"))
	})

	It("requires an endpoint and a bucket", func() {
		_, err := archive.NewMinioArchiver(archive.WithBucket("reports"))
		Expect(err).To(HaveOccurred())
	})
})
