package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/stepfree/access-planner/api/v1alpha1"
)

// (GET /health)
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, v1alpha1.Health{Status: "ok"})
}
