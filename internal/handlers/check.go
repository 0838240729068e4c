package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/aicheck/internal/handlers/render"
	"github.com/nkiryanov/aicheck/internal/logger"
	"github.com/nkiryanov/aicheck/internal/models"
)

const textField = "text"

func handleIndex(pages *render.Pages) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.HTML(w, render.PageIndex, map[string]any{"MinLength": models.MinTextLength}, http.StatusOK)
	})
}

// handleCheck classifies text submitted with the form and renders the verdict page
func handleCheck(detector detectorService, pages *render.Pages, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, render.MaxBodyBytes)

		// Url-encoded bodies are parsed too; multipart fields land in PostForm as well
		if err := r.ParseMultipartForm(render.MaxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			logger.Info("Failed to parse form", "error", err)
			pages.HTML(w, render.PageResult, map[string]any{"Result": "Error: The submitted form could not be read."}, http.StatusBadRequest)
			return
		}

		// Empty text is a valid submission (too short); absent field is not
		if _, ok := r.PostForm[textField]; !ok {
			pages.HTML(w, render.PageResult, map[string]any{"Result": "Error: The text field is missing."}, http.StatusBadRequest)
			return
		}

		verdict := detector.Classify(r.Context(), r.PostForm.Get(textField))
		pages.HTML(w, render.PageResult, map[string]any{"Result": verdict.Message()}, http.StatusOK)
	})
}

// handleAPICheck is the JSON counterpart of handleCheck
func handleAPICheck(detector detectorService, logger logger.Logger) http.Handler {
	type CheckRequest struct {
		Text *string `json:"text" validate:"required"`
	}
	type CheckResponse struct {
		ScanID  uuid.UUID          `json:"scan_id"`
		Verdict models.VerdictKind `json:"verdict"`
		Message string             `json:"message"`
		Score   *decimal.Decimal   `json:"score,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[CheckRequest](w, r)
		if err != nil {
			logger.Debug("Invalid check request", "error", err)
			return
		}

		verdict := detector.Classify(r.Context(), *data.Text)

		response := CheckResponse{
			ScanID:  verdict.ScanID,
			Verdict: verdict.Kind,
			Message: verdict.Message(),
		}
		if !verdict.Failed() {
			response.Score = &verdict.Score
		}

		render.JSON(w, response)
	})
}
