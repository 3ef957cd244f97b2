package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// RunRequest is the body of POST /hackrx/run.
type RunRequest struct {
	Documents string   `json:"documents" binding:"required"`
	Questions []string `json:"questions" binding:"required,min=1,dive,required"`
}

// RunResponse is the reply of POST /hackrx/run.
// Errors is present only under the per-question failure policy; a nil entry
// means the question at that index was answered.
type RunResponse struct {
	Answers []string  `json:"answers"`
	Errors  []*string `json:"errors,omitempty"`
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, bindingDetail(err))
		return
	}
	if !isRemoteURL(req.Documents) {
		abortWithDetail(c, http.StatusUnprocessableEntity, "documents must be an http(s) url")
		return
	}

	result, err := s.answer.Answer(c.Request.Context(), domain.AnswerRequest{
		DocumentURL: req.Documents,
		Questions:   req.Questions,
	})
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			logger.Error("run failed: %v", err)
		}
		abortWithDetail(c, code, err.Error())
		return
	}

	resp := RunResponse{Answers: make([]string, len(result.Answers))}
	if s.cfg.FailurePolicy == domain.PerQuestion {
		resp.Errors = make([]*string, len(result.Answers))
	}
	for i, a := range result.Answers {
		resp.Answers[i] = a.Answer
		if a.Err != nil && resp.Errors != nil {
			msg := a.Err.Error()
			resp.Errors[i] = &msg
		}
	}
	c.JSON(http.StatusOK, resp)
}

// isRemoteURL reports whether raw is an absolute http or https URL.
// Callers over HTTP never reach the local filesystem.
func isRemoteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// statusFor maps a pipeline error onto an HTTP status.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// bindingDetail renders a request binding failure.
func bindingDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body: " + err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %q", jsonField(fe.Namespace()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// jsonField turns "RunRequest.Questions[1]" into "questions[1]".
func jsonField(namespace string) string {
	_, field, ok := strings.Cut(namespace, ".")
	if !ok {
		field = namespace
	}
	return strings.ToLower(field[:1]) + field[1:]
}
